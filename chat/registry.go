// Package chat implements the connection registry and broadcast engine
// behind the group chat endpoint.
package chat

import (
	"sync"

	"github.com/samber/lo"
)

// Registry is the set of connections currently admitted to the group chat.
// It is the only shared mutable state in the chat core: every access takes
// the lock for the duration of a single operation, never across a fan-out.
type Registry struct {
	mu      sync.RWMutex
	members map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[*Client]struct{})}
}

// Add inserts a client. Adding a client twice is a no-op.
func (r *Registry) Add(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[client] = struct{}{}
}

// Remove deletes a client. Removing an absent client is a no-op.
func (r *Registry) Remove(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, client)
}

// Snapshot returns a point-in-time copy of the membership for iteration.
// Joins and leaves happening during a broadcast affect future snapshots only.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.members)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

package chat

import (
	"encoding/json"
	"log/slog"

	"chat-gateway/domain"
	"chat-gateway/observability"
)

// Broadcaster fans an event out to every current member of the registry.
//
// It provides best-effort delivery with no retries and no ordering guarantee
// across connections; per-connection order comes from each client's single
// write pump. A recipient that cannot take the payload is skipped: the
// failure stays local and never aborts delivery to the rest.
type Broadcaster struct {
	log      *slog.Logger
	registry *Registry
	metrics  *observability.Metrics
}

func NewBroadcaster(log *slog.Logger, registry *Registry, metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, metrics: metrics}
}

// Broadcast serializes the event once and enqueues the same payload to every
// member of a registry snapshot. Members joining mid-broadcast are picked up
// by the next snapshot; failed recipients are left for their own session to
// remove.
func (b *Broadcaster) Broadcast(event domain.ChatEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("event marshal failed", "type", event.Type, "error", err)
		return
	}

	for _, member := range b.registry.Snapshot() {
		if !member.Enqueue(payload) {
			b.metrics.DeliveryFailures.Inc()
			b.log.Debug("delivery dropped", "user", member.Identity().Username, "type", event.Type)
		}
	}
	b.metrics.BroadcastsTotal.Inc()
}

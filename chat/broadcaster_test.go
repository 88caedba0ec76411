package chat

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"chat-gateway/domain"
	"chat-gateway/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster() (*Broadcaster, *Registry, *observability.Metrics) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewBroadcaster(log, registry, metrics), registry, metrics
}

// drain pops one queued payload without blocking; nil when the buffer is empty.
func drain(c *Client) []byte {
	select {
	case payload := <-c.send:
		return payload
	default:
		return nil
	}
}

func TestBroadcast_DeliversSamePayloadToAll(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, metrics := newTestBroadcaster()

	clients := []*Client{newTestClient("a"), newTestClient("b"), newTestClient("c")}
	for _, c := range clients {
		registry.Add(c)
	}

	sender := domain.Sender{Username: "a", UserID: "id-a"}
	broadcaster.Broadcast(domain.NewMessageEvent("hello everyone", sender))

	for _, c := range clients {
		payload := drain(c)
		req.NotNil(payload)

		var event domain.ChatEvent
		req.NoError(json.Unmarshal(payload, &event))
		req.Equal(domain.EventMessage, event.Type)
		req.Equal("hello everyone", event.Content)
		req.NotNil(event.Sender)
		req.Equal("a", event.Sender.Username)
		req.Equal("id-a", event.Sender.UserID)
	}

	req.Equal(float64(1), testutil.ToFloat64(metrics.BroadcastsTotal))
	req.Equal(float64(0), testutil.ToFloat64(metrics.DeliveryFailures))
}

func TestBroadcast_FullBufferDoesNotStopOthers(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, metrics := newTestBroadcaster()

	log := slog.Default()
	stuck := NewClient(nil, domain.Sender{Username: "stuck"}, 1, log)
	req.True(stuck.Enqueue([]byte("backlog")))

	healthy := newTestClient("healthy")
	registry.Add(stuck)
	registry.Add(healthy)

	broadcaster.Broadcast(domain.NewJoinEvent("newcomer"))

	req.NotNil(drain(healthy))
	req.Equal(float64(1), testutil.ToFloat64(metrics.DeliveryFailures))
	req.Equal(float64(1), testutil.ToFloat64(metrics.BroadcastsTotal))
}

func TestBroadcast_ClosedClientCountsAsFailure(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, metrics := newTestBroadcaster()

	closed := newTestClient("gone")
	closed.Close()
	registry.Add(closed)

	broadcaster.Broadcast(domain.NewLeaveEvent("somebody"))

	req.Nil(drain(closed))
	req.Equal(float64(1), testutil.ToFloat64(metrics.DeliveryFailures))
}

// Package observability exposes the gateway's runtime counters.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the chat counters exported on /metrics.
type Metrics struct {
	ActiveConnections  prometheus.Gauge
	BroadcastsTotal    prometheus.Counter
	MessagesTotal      prometheus.Counter
	DeliveryFailures   prometheus.Counter
	RejectedHandshakes prometheus.Counter
	MalformedFrames    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Number of WebSocket connections currently admitted to the group chat.",
		}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_broadcasts_total",
			Help: "Number of events fanned out to the registry.",
		}),
		MessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Number of inbound chat messages accepted.",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_delivery_failures_total",
			Help: "Number of per-recipient deliveries dropped during fan-out.",
		}),
		RejectedHandshakes: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_rejected_handshakes_total",
			Help: "Number of chat handshakes closed before admission due to bad credentials.",
		}),
		MalformedFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_malformed_frames_total",
			Help: "Number of inbound frames rejected for missing or invalid payload.",
		}),
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutboxPublished    = "published"
	OutboxFailed       = "failed"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics counts publisher outcomes per event type. A nil receiver is a no-op.
type OutboxMetrics struct {
	events *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herovault_outbox_events_total",
			Help: "Outbox rows handled by the publisher, by event type and result.",
		}, []string{"event_type", "result"}),
	}
	reg.MustRegister(m.events)
	return m
}

func (m *OutboxMetrics) Observe(eventType, result string) {
	if m == nil || m.events == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.events.WithLabelValues(eventType, result).Inc()
}

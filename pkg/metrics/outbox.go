package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks publisher outcomes per event type.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
}

const (
	OutcomePublished    = "published"
	OutcomeRetry        = "retry"
	OutcomeDeadLettered = "dead_lettered"
)

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_outcomes_total",
			Help:      "Outbox publish attempts by event type and outcome.",
		}, []string{"event_type", "outcome"}),
	}
	reg.MustRegister(m.outcomes)
	return m
}

func (m *OutboxMetrics) Observe(eventType, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

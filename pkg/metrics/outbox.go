package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish results.
const (
	PublishOK           = "published"
	PublishRetry        = "retry"
	PublishDeadLettered = "dead_lettered"
)

// OutboxMetrics counts what the outbox publisher did with each row.
type OutboxMetrics struct {
	results *prometheus.CounterVec
	batch   prometheus.Histogram
}

// NewOutboxMetrics registers on reg; nil gives a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox rows handled by the publisher, by event type and result.",
		}, []string{"event_type", "result"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_size",
			Help:      "Rows claimed per non-empty publish batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
	reg.MustRegister(m.results, m.batch)
	return m
}

func (m *OutboxMetrics) Observe(eventType, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(eventType, result).Inc()
}

func (m *OutboxMetrics) ObserveBatch(n int) {
	if m == nil || m.batch == nil || n == 0 {
		return
	}
	m.batch.Observe(float64(n))
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics описывает backlog и публикации transactional outbox.
type OutboxMetrics struct {
	publishAttempts *prometheus.CounterVec
	pending         prometheus.Gauge
	oldestAge       prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики outbox в registerer (nil — DefaultRegisterer).
func NewOutboxMetrics(registerer prometheus.Registerer) *OutboxMetrics {
	return &OutboxMetrics{
		publishAttempts: register(registerer, "foodorder_outbox_publish_attempts_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodorder_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"})),
		pending: register(registerer, "foodorder_outbox_pending_records", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foodorder_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		})),
		oldestAge: register(registerer, "foodorder_outbox_oldest_pending_age_seconds", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foodorder_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		})),
	}
}

// RecordPublish фиксирует попытку публикации с результатом sent, retry_error, failed или dlq_failed.
func (m *OutboxMetrics) RecordPublish(result string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(result).Inc()
}

// SetBacklog обновляет размер backlog и возраст самого старого сообщения.
func (m *OutboxMetrics) SetBacklog(pending int, oldest time.Time, now time.Time) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
	if pending == 0 || oldest.IsZero() {
		m.oldestAge.Set(0)
		return
	}
	age := now.Sub(oldest).Seconds()
	if age < 0 {
		age = 0
	}
	m.oldestAge.Set(age)
}

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics counts gateway events and reconciliation outcomes.
type PaymentMetrics struct {
	events *prometheus.CounterVec
	alerts *prometheus.CounterVec
}

// NewPaymentMetrics registers payment metrics on the default registry.
func NewPaymentMetrics() *PaymentMetrics {
	return &PaymentMetrics{
		events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stayloop_payment_events_total",
			Help: "Gateway events by source and reconciled outcome.",
		}, []string{"source", "outcome"}),
		alerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stayloop_reconciliation_alerts_total",
			Help: "Secondary-effect failures requiring manual reconciliation.",
		}, []string{"reason"}),
	}
}

// RecordEvent increments the event count for a reconciled gateway event.
func (m *PaymentMetrics) RecordEvent(source, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(normalize(source), normalize(outcome)).Inc()
}

// RecordAlert increments the reconciliation-alert count.
func (m *PaymentMetrics) RecordAlert(reason string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(normalize(reason)).Inc()
}

func normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	return v
}

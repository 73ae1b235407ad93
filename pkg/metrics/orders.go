package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// OrderMetrics counts lifecycle activity. A nil *OrderMetrics is a no-op.
type OrderMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkouts        *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	assignments      *prometheus.CounterVec
	payments         *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "freshcart",
		Name:      "checkout_duration_seconds",
		Help:      "Duration of checkout transactions in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshcart",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome and error code.",
	}, []string{"outcome", "code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshcart",
		Name:      "order_transitions_total",
		Help:      "Committed order status transitions.",
	}, []string{"from", "to", "role"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshcart",
		Name:      "partner_assignments_total",
		Help:      "Delivery partner assignment attempts by outcome.",
	}, []string{"outcome"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshcart",
		Name:      "payments_recorded_total",
		Help:      "Recorded payment updates by method and status.",
	}, []string{"method", "status"})
	reg.MustRegister(checkoutDuration, checkouts, transitions, assignments, payments)
	return &OrderMetrics{
		checkoutDuration: checkoutDuration,
		checkouts:        checkouts,
		transitions:      transitions,
		assignments:      assignments,
		payments:         payments,
	}
}

// ObserveCheckout records a checkout attempt. code is empty on success.
func (m *OrderMetrics) ObserveCheckout(outcome, code string, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome), code).Inc()
	m.checkoutDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncTransition counts a committed status change.
func (m *OrderMetrics) IncTransition(from, to, role string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(role)).Inc()
}

// IncAssignment counts an assignment attempt.
func (m *OrderMetrics) IncAssignment(outcome string) {
	if m == nil || m.assignments == nil {
		return
	}
	m.assignments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPayment counts a recorded payment update.
func (m *OrderMetrics) IncPayment(method, status string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

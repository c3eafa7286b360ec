package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters for the order workflow.
type OrderMetrics struct {
	created          prometheus.Counter
	cancelled        prometheus.Counter
	checkoutFailures *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
}

// NewOrderMetrics registers the order workflow metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Successfully placed orders.",
	})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders transitioned to the cancelled state.",
	})
	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Failed checkout attempts by reason.",
	}, []string{"reason"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(created, cancelled, checkoutFailures, checkoutDuration)
	return &OrderMetrics{
		created:          created,
		cancelled:        cancelled,
		checkoutFailures: checkoutFailures,
		checkoutDuration: checkoutDuration,
	}
}

// IncCreated increments the placed-order counter.
func (m *OrderMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

// IncCancelled increments the cancelled-order counter.
func (m *OrderMetrics) IncCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

// IncCheckoutFailure increments the failure counter for the given reason.
func (m *OrderMetrics) IncCheckoutFailure(reason string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.checkoutFailures.WithLabelValues(reason).Inc()
}

// ObserveCheckoutDuration records how long a checkout transaction took.
func (m *OrderMetrics) ObserveCheckoutDuration(duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.Observe(duration.Seconds())
}

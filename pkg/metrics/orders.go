package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// OrderMetrics tracks checkout and order lifecycle activity.
type OrderMetrics struct {
	created          *prometheus.CounterVec
	cancelled        prometheus.Counter
	statusChanges    *prometheus.CounterVec
	stockConflicts   prometheus.Counter
	checkoutDuration *prometheus.HistogramVec
}

// NewOrderMetrics registers order metrics on reg. A nil registerer yields a
// no-op recorder so services can be built without a metrics stack in tests.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders placed, by payment method.",
		}, []string{"payment_method"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "cancelled_total",
			Help:      "Orders cancelled by customers.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Admin status transitions, by target status.",
		}, []string{"status"}),
		stockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "stock_conflicts_total",
			Help:      "Checkouts rejected because a variant ran out of stock.",
		}),
		checkoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Checkout transaction duration.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.created, m.cancelled, m.statusChanges, m.stockConflicts, m.checkoutDuration)
	return m
}

func (m *OrderMetrics) OrderCreated(paymentMethod string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *OrderMetrics) OrderCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

func (m *OrderMetrics) StatusChanged(status string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *OrderMetrics) StockConflict() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

// ObserveCheckout records how long a checkout took; outcome is "success" or "failure".
func (m *OrderMetrics) ObserveCheckout(outcome string, d time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

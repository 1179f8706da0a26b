package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking and availability flows.
type BookingMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	slotQueriesTotal  *prometheus.CounterVec
	notificationTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consultbook",
			Subsystem: "bookings",
			Name:      "operations_total",
			Help:      "Booking operations by outcome (ok or error kind)",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "consultbook",
			Subsystem: "bookings",
			Name:      "operation_latency_seconds",
			Help:      "Latency of booking operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		slotQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consultbook",
			Subsystem: "availability",
			Name:      "slot_queries_total",
			Help:      "Free slot queries by cache result",
		}, []string{"cache"}),
		notificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consultbook",
			Subsystem: "notifications",
			Name:      "published_total",
			Help:      "Booking events handed to the notification sink",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.slotQueriesTotal, m.notificationTotal)
	return m
}

func (m *BookingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveSlotQuery(cacheHit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.slotQueriesTotal.WithLabelValues(label).Inc()
}

func (m *BookingMetrics) ObserveNotification(eventType, status string) {
	if m == nil {
		return
	}
	m.notificationTotal.WithLabelValues(eventType, status).Inc()
}

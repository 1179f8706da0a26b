package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveOperation("create", "ok", 0.01)
	m.ObserveOperation("create", "ok", 0.02)
	m.ObserveOperation("create", "concurrent_booking_conflict", 0.03)
	m.ObserveSlotQuery(true)
	m.ObserveSlotQuery(false)
	m.ObserveSlotQuery(false)
	m.ObserveNotification("booking.created", "queued")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "concurrent_booking_conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.slotQueriesTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationTotal.WithLabelValues("booking.created", "queued")))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveOperation("create", "ok", 0.1)
	m.ObserveSlotQuery(true)
	m.ObserveNotification("booking.created", "failed")
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveFetch("range", "ok", 0.2)
	m.ObserveFetch("range", "ok", 0.1)
	m.ObserveFetch("date", "error", 0.5)
	m.ObserveStaleDiscard()
	m.ObserveBooking("ok")

	if got := testutil.ToFloat64(m.rangeFetchTotal.WithLabelValues("range", "ok")); got != 2 {
		t.Errorf("range ok fetches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rangeFetchTotal.WithLabelValues("date", "error")); got != 1 {
		t.Errorf("date error fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.staleFetchDiscarded); got != 1 {
		t.Errorf("stale discards = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bookingTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("bookings = %v, want 1", got)
	}
}

func TestIntakeMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.ObserveTicket("high", "accepted")
	m.ObserveSurvey("accepted")
	m.ObserveDelivery("delivered")
	m.ObserveDelivery("failed")

	if got := testutil.ToFloat64(m.ticketsTotal.WithLabelValues("high", "accepted")); got != 1 {
		t.Errorf("tickets = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed deliveries = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var b *BookingMetrics
	var i *IntakeMetrics
	b.ObserveFetch("range", "ok", 0)
	b.ObserveStaleDiscard()
	b.ObserveBooking("ok")
	i.ObserveTicket("low", "accepted")
	i.ObserveSurvey("accepted")
	i.ObserveDelivery("delivered")
}

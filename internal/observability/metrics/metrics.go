package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the calendar-booking flow.
type BookingMetrics struct {
	rangeFetchTotal     *prometheus.CounterVec
	staleFetchDiscarded prometheus.Counter
	bookingTotal        *prometheus.CounterVec
	fetchLatency        *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		rangeFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "booking",
			Name:      "availability_fetch_total",
			Help:      "Total availability fetches against the calendar provider",
		}, []string{"kind", "status"}),
		staleFetchDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "booking",
			Name:      "stale_fetch_discarded_total",
			Help:      "Fetch results dropped because the viewer timezone changed in flight",
		}),
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "booking",
			Name:      "appointments_total",
			Help:      "Appointment creation attempts by outcome",
		}, []string{"status"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "booking",
			Name:      "availability_fetch_seconds",
			Help:      "Latency of calendar provider availability fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.rangeFetchTotal, m.staleFetchDiscarded, m.bookingTotal, m.fetchLatency)
	return m
}

func (m *BookingMetrics) ObserveFetch(kind, status string, seconds float64) {
	if m == nil {
		return
	}
	m.rangeFetchTotal.WithLabelValues(kind, status).Inc()
	m.fetchLatency.WithLabelValues(kind).Observe(seconds)
}

func (m *BookingMetrics) ObserveStaleDiscard() {
	if m == nil {
		return
	}
	m.staleFetchDiscarded.Inc()
}

func (m *BookingMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(status).Inc()
}

// IntakeMetrics exposes counters for ticket/survey submissions and webhook relay.
type IntakeMetrics struct {
	ticketsTotal    *prometheus.CounterVec
	surveysTotal    *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		ticketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "tickets",
			Name:      "submissions_total",
			Help:      "Support ticket submissions by priority and status",
		}, []string{"priority", "status"}),
		surveysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "surveys",
			Name:      "submissions_total",
			Help:      "Onboarding survey submissions by status",
		}, []string{"status"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "automation",
			Name:      "webhook_deliveries_total",
			Help:      "Workflow-automation webhook delivery attempts by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ticketsTotal, m.surveysTotal, m.deliveriesTotal)
	return m
}

func (m *IntakeMetrics) ObserveTicket(priority, status string) {
	if m == nil {
		return
	}
	m.ticketsTotal.WithLabelValues(priority, status).Inc()
}

func (m *IntakeMetrics) ObserveSurvey(status string) {
	if m == nil {
		return
	}
	m.surveysTotal.WithLabelValues(status).Inc()
}

func (m *IntakeMetrics) ObserveDelivery(status string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(status).Inc()
}

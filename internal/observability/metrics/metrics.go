package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters and histograms for the booking engine and
// the assistant query path.
type AssistantMetrics struct {
	bookingTurns      *prometheus.CounterVec
	bookingOutcomes   *prometheus.CounterVec
	availabilityFails *prometheus.CounterVec
	queries           *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	llmLatency        *prometheus.HistogramVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		bookingTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "turns_total",
			Help:      "Booking dialogue turns by resulting session state",
		}, []string{"state"}),
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Terminal booking outcomes",
		}, []string{"outcome"}),
		availabilityFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "availability_conflicts_total",
			Help:      "Requested slots rejected by the availability check",
		}, []string{"reason"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "assistant",
			Name:      "queries_total",
			Help:      "Assistant queries by route",
		}, []string{"route", "language"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospital",
			Subsystem: "assistant",
			Name:      "turn_duration_seconds",
			Help:      "Time to answer one query",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospital",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of LLM completions",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingTurns, m.bookingOutcomes, m.availabilityFails, m.queries, m.turnDuration, m.llmLatency)
	return m
}

func (m *AssistantMetrics) ObserveBookingTurn(state string) {
	if m == nil {
		return
	}
	m.bookingTurns.WithLabelValues(state).Inc()
}

// ObserveBookingOutcome records booked, cancelled or failed.
func (m *AssistantMetrics) ObserveBookingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.bookingOutcomes.WithLabelValues(outcome).Inc()
}

func (m *AssistantMetrics) ObserveAvailabilityConflict(reason string) {
	if m == nil {
		return
	}
	m.availabilityFails.WithLabelValues(reason).Inc()
}

func (m *AssistantMetrics) ObserveQuery(route, language string, seconds float64) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(route, language).Inc()
	m.turnDuration.WithLabelValues(route).Observe(seconds)
}

func (m *AssistantMetrics) ObserveLLMLatency(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(provider, status).Observe(seconds)
}

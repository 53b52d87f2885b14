package metrics

import "github.com/prometheus/client_golang/prometheus"

// InterviewMetrics exposes counters/histograms for the booking interview.
type InterviewMetrics struct {
	sessionsStarted *prometheus.CounterVec
	turnsTotal      *prometheus.CounterVec
	appointments    *prometheus.CounterVec
	sessionsEvicted prometheus.Counter
	stepLatency     *prometheus.HistogramVec
}

func NewInterviewMetrics(reg prometheus.Registerer) *InterviewMetrics {
	m := &InterviewMetrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebooking",
			Subsystem: "interview",
			Name:      "sessions_started_total",
			Help:      "Interview sessions created, by transport",
		}, []string{"transport"}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebooking",
			Subsystem: "interview",
			Name:      "turns_total",
			Help:      "Engine steps, by transport and outcome",
		}, []string{"transport", "outcome"}),
		appointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebooking",
			Subsystem: "interview",
			Name:      "appointments_total",
			Help:      "Completed interviews, by persistence status",
		}, []string{"status"}),
		sessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voicebooking",
			Subsystem: "interview",
			Name:      "sessions_evicted_total",
			Help:      "Idle sessions removed by the janitor",
		}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voicebooking",
			Subsystem: "interview",
			Name:      "step_latency_seconds",
			Help:      "Latency of one engine step including matching and persistence",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsStarted, m.turnsTotal, m.appointments, m.sessionsEvicted, m.stepLatency)
	return m
}

func (m *InterviewMetrics) ObserveSessionStarted(transport string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(transport).Inc()
}

func (m *InterviewMetrics) ObserveTurn(transport, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(transport, outcome).Inc()
	m.stepLatency.WithLabelValues(transport).Observe(seconds)
}

func (m *InterviewMetrics) ObserveAppointment(saved bool) {
	if m == nil {
		return
	}
	status := "saved"
	if !saved {
		status = "failed"
	}
	m.appointments.WithLabelValues(status).Inc()
}

func (m *InterviewMetrics) ObserveEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsEvicted.Add(float64(n))
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	attempts    *prometheus.CounterVec
	exhausted   *prometheus.CounterVec
	answers     *prometheus.CounterVec
	elicitation *prometheus.HistogramVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_clarify_variant_attempts_total",
			Help: "Elicitation call-shape variants tried, by outcome.",
		}, []string{"channel", "variant", "outcome"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_clarify_negotiations_exhausted_total",
			Help: "Questions for which no call-shape variant was accepted.",
		}, []string{"channel"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_clarify_answers_total",
			Help: "Canonical answers produced, by how they were resolved.",
		}, []string{"resolution"}),
		elicitation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcp_clarify_elicitation_seconds",
			Help:    "Time from asking to having a canonical answer.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"channel", "status"}),
	}
	r.MustRegister(m.attempts, m.exhausted, m.answers, m.elicitation)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveAttempt(channel, variant string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "accepted"
	}
	m.attempts.WithLabelValues(channel, variant, outcome).Inc()
}

func (m *Metrics) ObserveExhausted(channel string) {
	m.exhausted.WithLabelValues(channel).Inc()
}

func (m *Metrics) ObserveAnswer(resolution string) {
	m.answers.WithLabelValues(resolution).Inc()
}

func (m *Metrics) ObserveElicitation(channel string, ok bool, dur time.Duration) {
	status := "error"
	if ok {
		status = "ok"
	}
	m.elicitation.WithLabelValues(channel, status).Observe(dur.Seconds())
}

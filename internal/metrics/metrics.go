// Package metrics exports Prometheus counters and histograms for the
// verdict pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/selimozcann/qrlens/internal/model"
)

const namespace = "qrlens"

// Metrics holds the pipeline collectors and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	Verdicts          *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	RedirectErrors    *prometheus.CounterVec
	ReputationChecks  *prometheus.CounterVec
	RedirectChainHops prometheus.Histogram
}

// New registers the collectors in a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Final verdicts by value and deciding stage",
		}, []string{"verdict", "stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		RedirectErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_errors_total",
			Help:      "Redirect resolutions cut short, by error tag",
		}, []string{"tag"}),
		ReputationChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reputation_checks_total",
			Help:      "Reputation lookups by outcome (safe, threat or an error tag)",
		}, []string{"outcome"}),
		RedirectChainHops: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redirect_chain_hops",
			Help:      "Number of URLs in resolved redirect chains",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveVerdict counts a final verdict.
func (m *Metrics) ObserveVerdict(v model.Verdict, stage model.Stage) {
	m.Verdicts.WithLabelValues(string(v), string(stage)).Inc()
}

// ObserveStage records the duration of a stage.
func (m *Metrics) ObserveStage(stage model.Stage, d time.Duration) {
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// ObserveResolution records a resolved chain and its error tag, if any.
func (m *Metrics) ObserveResolution(hops int, errTag string) {
	m.RedirectChainHops.Observe(float64(hops))
	if errTag != "" {
		m.RedirectErrors.WithLabelValues(errTag).Inc()
	}
}

// ObserveReputation counts a reputation lookup outcome.
func (m *Metrics) ObserveReputation(outcome string) {
	m.ReputationChecks.WithLabelValues(outcome).Inc()
}

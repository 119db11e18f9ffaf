package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "progeval"

// PrometheusMetrics implements EvaluationMetrics with Prometheus
// collectors registered on its own registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	scores             prometheus.Histogram
	builds             *prometheus.CounterVec
	buildDuration      prometheus.Histogram
	runs               *prometheus.CounterVec
	runDuration        prometheus.Histogram
	testbedRatio       prometheus.Histogram
	active             prometheus.Gauge
}

// NewPrometheusMetrics creates a PrometheusMetrics with a fresh
// registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total evaluations by language and status",
		}, []string{"language", "status"}),
		evaluationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall-clock duration of an evaluation",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"language"}),
		scores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_score",
			Help:      "Distribution of final scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "total",
			Help:      "Total builds by language and outcome",
		}, []string{"language", "outcome"}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Build duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total test runs by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Test run duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		testbedRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "testbed",
			Name:      "score_ratio",
			Help:      "Awarded score as a fraction of the testbed maximum",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_evaluations",
			Help:      "Evaluations currently in progress",
		}),
	}
}

func (m *PrometheusMetrics) RecordEvaluation(language, status string, score float64, duration time.Duration) {
	m.evaluations.WithLabelValues(language, status).Inc()
	m.evaluationDuration.WithLabelValues(language).Observe(duration.Seconds())
	m.scores.Observe(score)
}

func (m *PrometheusMetrics) RecordBuild(language, outcome string, duration time.Duration) {
	m.builds.WithLabelValues(language, outcome).Inc()
	if outcome != BuildNotNeeded {
		m.buildDuration.Observe(duration.Seconds())
	}
}

func (m *PrometheusMetrics) RecordRun(outcome string, duration time.Duration) {
	m.runs.WithLabelValues(outcome).Inc()
	if outcome != OutcomeNotRun {
		m.runDuration.Observe(duration.Seconds())
	}
}

// RecordTestbed observes awarded/max. Testbeds worth nothing are
// ignored.
func (m *PrometheusMetrics) RecordTestbed(awarded, max float64) {
	if max <= 0 {
		return
	}
	m.testbedRatio.Observe(awarded / max)
}

func (m *PrometheusMetrics) SetActiveEvaluations(count int) {
	m.active.Set(float64(count))
}

// Registry returns the registry holding the collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics in the
// Prometheus text format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

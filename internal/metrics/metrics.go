// Package metrics defines the Prometheus instruments exported on /metrics.
// Instruments are registered on a dedicated registry per Metrics value so
// tests and embedded engines never collide on the global registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leapstack-labs/leapml/pkg/core"
)

const namespace = "leapml"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Metrics holds the pipeline instruments.
type Metrics struct {
	registry *prometheus.Registry

	// RunsTotal counts training runs by model kind and outcome.
	RunsTotal *prometheus.CounterVec
	// RunDuration measures training run latency by model kind.
	RunDuration *prometheus.HistogramVec
	// PredictionsTotal counts scored records by outcome.
	PredictionsTotal *prometheus.CounterVec
	// ErrorsTotal counts failures by operation and error kind.
	ErrorsTotal *prometheus.CounterVec
	// UploadsTotal counts dataset uploads by outcome.
	UploadsTotal *prometheus.CounterVec
	// Datasets and Artifacts track registry sizes.
	Datasets  prometheus.Gauge
	Artifacts prometheus.Gauge
	// WorkersBusy tracks occupied worker pool slots.
	WorkersBusy prometheus.Gauge
}

// New creates the instruments on a fresh registry that also carries the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Training runs by model kind and outcome.",
		}, []string{"model", "outcome"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Training run latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"model"}),
		PredictionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "records_total",
			Help:      "Records scored by outcome.",
		}, []string{"outcome"}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failures by operation and error kind.",
		}, []string{"operation", "kind"}),
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datasets",
			Name:      "uploads_total",
			Help:      "Dataset uploads by outcome.",
		}, []string{"outcome"}),
		Datasets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "datasets",
			Name:      "registered",
			Help:      "Datasets currently registered.",
		}),
		Artifacts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "stored",
			Help:      "Artifacts currently stored.",
		}),
		WorkersBusy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workers",
			Name:      "busy",
			Help:      "Worker pool slots in use.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished training run.
func (m *Metrics) ObserveRun(kind core.ModelKind, outcome string, elapsed time.Duration) {
	model := string(kind)
	if model == "" {
		model = "unknown"
	}
	m.RunsTotal.WithLabelValues(model, outcome).Inc()
	m.RunDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveError records a failure of operation.
func (m *Metrics) ObserveError(operation string, err error) {
	kind := string(core.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	m.ErrorsTotal.WithLabelValues(operation, kind).Inc()
}

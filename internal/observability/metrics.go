package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers the asset-processing worker: run outcomes,
// durations, in-flight gauge, and the lag between enqueue and claim.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight prometheus.Gauge
	queueLag     prometheus.Histogram
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetorganizer",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total processing runs by outcome.",
		},
		[]string{"outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assetorganizer",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Processing run duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "assetorganizer",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of processing runs currently executing.",
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "assetorganizer",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between run creation and claim.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, queueLag)
	registry.MustRegister(collectors.NewGoCollector())

	return &PipelineMetrics{
		registry:     registry,
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		runsInFlight: runsInFlight,
		queueLag:     queueLag,
	}
}

func (m *PipelineMetrics) RunStarted(createdAt time.Time) {
	m.runsInFlight.Inc()
	if !createdAt.IsZero() {
		m.queueLag.Observe(time.Since(createdAt).Seconds())
	}
}

func (m *PipelineMetrics) RunFinished(outcome string, started time.Time) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus instrumentation for report generation,
// served over HTTP in watch mode.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the report generation instruments on a private registry, so
// embedding applications keep their own default registry untouched.
type Metrics struct {
	registry *prometheus.Registry

	runs          prometheus.Counter
	duration      prometheus.Histogram
	requirements  prometheus.Gauge
	orphans       prometheus.Gauge
	cycles        prometheus.Gauge
	watchRebuilds prometheus.Counter
}

// New creates and registers the report metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqtrace_report_runs_total",
			Help: "Number of report generation runs.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reqtrace_report_duration_seconds",
			Help:    "Report generation duration.",
			Buckets: prometheus.DefBuckets,
		}),
		requirements: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtrace_requirements",
			Help: "Requirements in the most recent report.",
		}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtrace_orphans",
			Help: "Orphaned requirements in the most recent report.",
		}),
		cycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reqtrace_cycles",
			Help: "Cycles detected in the most recent report.",
		}),
		watchRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reqtrace_watch_rebuilds_total",
			Help: "Report rebuilds triggered by file watching.",
		}),
	}
	m.registry.MustRegister(m.runs, m.duration, m.requirements, m.orphans, m.cycles, m.watchRebuilds)
	return m
}

// ObserveRun records one completed generation run.
func (m *Metrics) ObserveRun(requirements, orphans, cycles int, elapsed time.Duration) {
	m.runs.Inc()
	m.duration.Observe(elapsed.Seconds())
	m.requirements.Set(float64(requirements))
	m.orphans.Set(float64(orphans))
	m.cycles.Set(float64(cycles))
}

// ObserveRebuild records one watch-triggered rebuild.
func (m *Metrics) ObserveRebuild() {
	m.watchRebuilds.Inc()
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// Registry holds the ETL's Prometheus metrics on a private registry
// ⭐ SSOT: metric names are defined here only
type Registry struct {
	registry *prometheus.Registry

	Runs               prometheus.Counter
	Instruments        *prometheus.CounterVec
	InstrumentDuration *prometheus.HistogramVec
	Failures           *prometheus.CounterVec
	LastRun            prometheus.Gauge
	LastRunDuration    prometheus.Gauge
}

// NewRegistry creates the metrics and registers them
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Runs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prisme_runs_total",
				Help: "Total number of completed ETL runs",
			},
		),

		Instruments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prisme_instruments_total",
				Help: "Instruments processed by outcome status",
			},
			[]string{"status"},
		),

		InstrumentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prisme_instrument_duration_seconds",
				Help:    "Wall time spent on one instrument",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"status"},
		),

		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prisme_instrument_failures_total",
				Help: "Failed instruments by stage",
			},
			[]string{"stage"},
		),

		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "prisme_last_run_timestamp_seconds",
				Help: "Unix time the latest run finished",
			},
		),

		LastRunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "prisme_last_run_duration_seconds",
				Help: "Wall time of the latest run",
			},
		),
	}

	r.registry.MustRegister(
		r.Runs,
		r.Instruments,
		r.InstrumentDuration,
		r.Failures,
		r.LastRun,
		r.LastRunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Record implements contracts.Recorder
func (r *Registry) Record(_ context.Context, summary *contracts.RunSummary) error {
	r.Runs.Inc()
	for _, o := range summary.Outcomes {
		status := string(o.Status)
		r.Instruments.WithLabelValues(status).Inc()
		r.InstrumentDuration.WithLabelValues(status).Observe(o.Duration.Seconds())
		if o.Status == contracts.StatusFailed {
			r.Failures.WithLabelValues(o.Stage).Inc()
		}
	}
	r.LastRun.Set(float64(summary.FinishedAt.Unix()))
	r.LastRunDuration.Set(summary.Duration().Seconds())
	return nil
}

// Gatherer exposes the private registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

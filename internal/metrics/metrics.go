// Package metrics records generation passes as Prometheus metrics.
//
// pipeforge runs as a short-lived CLI, so metrics are not served over HTTP.
// They are written to a node_exporter textfile after each pass instead.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fyrsmithlabs/pipeforge/internal/validate"
)

// Metrics holds the pass metrics on a private registry.
//
// Metrics:
//   - pipeforge_passes_total{status} - reconciliation passes by status
//   - pipeforge_validation_issues_total{code,severity} - validation findings
//   - pipeforge_custom_jobs - custom jobs in the last pass
//   - pipeforge_pass_duration_seconds - duration of a pass
type Metrics struct {
	registry *prometheus.Registry

	PassesTotal      *prometheus.CounterVec
	IssuesTotal      *prometheus.CounterVec
	CustomJobs       prometheus.Gauge
	PassDuration     prometheus.Histogram
	LastPassUnixTime prometheus.Gauge
}

// New creates the metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		PassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeforge_passes_total",
				Help: "Total number of reconciliation passes",
			},
			[]string{"status"}, // created, updated, merged, rebuilt
		),
		IssuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeforge_validation_issues_total",
				Help: "Total number of validation findings",
			},
			[]string{"code", "severity"},
		),
		CustomJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeforge_custom_jobs",
				Help: "Number of custom jobs carried by the last pass",
			},
		),
		PassDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeforge_pass_duration_seconds",
				Help:    "Duration of a reconciliation pass in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
			},
		),
		LastPassUnixTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeforge_last_pass_timestamp_seconds",
				Help: "Unix time of the last pass",
			},
		),
	}
}

// ObservePass records one pass.
func (m *Metrics) ObservePass(status string, result validate.Result, customJobs int, elapsed time.Duration) {
	m.PassesTotal.WithLabelValues(status).Inc()
	for _, issue := range result.Errors {
		m.IssuesTotal.WithLabelValues(string(issue.Code), "error").Inc()
	}
	for _, issue := range result.Warnings {
		m.IssuesTotal.WithLabelValues(string(issue.Code), "warning").Inc()
	}
	m.CustomJobs.Set(float64(customJobs))
	m.PassDuration.Observe(elapsed.Seconds())
	m.LastPassUnixTime.SetToCurrentTime()
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linesScannedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linewarden_lines_scanned_total",
			Help: "Total number of lines read by validation runs",
		},
	)

	violationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linewarden_violations_total",
			Help: "Total number of violations reported, by rule",
		},
		[]string{"rule"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linewarden_runs_total",
			Help: "Total number of validation runs, by terminal state",
		},
		[]string{"state"}, // completed, stopped_early or failed
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linewarden_scan_duration_seconds",
			Help:    "Duration of a single validation run in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
	)
)

func observeReport(r *Report) {
	linesScannedTotal.Add(float64(r.Lines))
	runsTotal.WithLabelValues(r.State.String()).Inc()
	scanDuration.Observe(r.Duration.Seconds())
	for _, v := range r.Violations {
		violationsTotal.WithLabelValues(v.Rule).Inc()
	}
}

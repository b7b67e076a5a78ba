package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(labelingRunsTotal, labelingRunSeconds) }

var (
	labelingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeling_runs_total",
			Help: "Total number of labeling runs, labeled by outcome.",
		},
		[]string{"outcome"}, // 'succeeded', 'request_failed', 'timed_out', 'no_video', ...
	)

	labelingRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "labeling_run_seconds",
			Help:    "End-to-end labeling run duration in seconds.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
		},
	)
)

func IncRun(outcome string) {
	labelingRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveRunDuration(d time.Duration) {
	labelingRunSeconds.Observe(d.Seconds())
}

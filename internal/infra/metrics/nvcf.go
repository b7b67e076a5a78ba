package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		nvcfCallsTotal,
		nvcfCallLatencyMs,
		nvcfPollAttempts,
	)
}

// Stages of the remote pipeline, used as the "stage" label.
const (
	StageAllocate = "allocate"
	StageUpload   = "upload"
	StageSubmit   = "submit"
	StagePoll     = "poll"
)

var (
	nvcfCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nvcf_calls_total",
			Help: "NVCF HTTP calls per stage and response status (0 = no response).",
		},
		[]string{"stage", "status"},
	)

	nvcfCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nvcf_call_latency_ms",
			Help:    "NVCF call latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3200, 6400, 12800, 30000, 60000},
		},
		[]string{"stage", "success"},
	)

	nvcfPollAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nvcf_poll_attempts",
			Help:    "Status checks made per polling run, by terminal state.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
		[]string{"state"},
	)
)

func ObserveCall(stage string, status int, latency time.Duration, success bool) {
	nvcfCallsTotal.WithLabelValues(norm(stage), strconv.Itoa(status)).Inc()
	nvcfCallLatencyMs.WithLabelValues(norm(stage), strconv.FormatBool(success)).
		Observe(float64(latency / time.Millisecond))
}

func ObservePoll(state string, attempts int) {
	nvcfPollAttempts.WithLabelValues(norm(state)).Observe(float64(attempts))
}

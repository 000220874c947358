package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCount counts HTTP requests
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// SubmissionsParsed counts parsed submissions by outcome (ok, parse_error, too_short)
	SubmissionsParsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_parsed_total",
			Help: "Total number of parsed submissions by outcome",
		},
		[]string{"outcome"},
	)

	// ComparisonCount counts tiled pairs by kind (basecode, pair)
	ComparisonCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comparisons_total",
			Help: "Total number of pairwise comparisons",
		},
		[]string{"kind"},
	)

	// ComparisonDuration measures a single tiling
	ComparisonDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comparison_duration_seconds",
			Help:    "Greedy string tiling duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	// RunCount counts comparison runs by status
	RunCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runs_total",
			Help: "Total number of comparison runs",
		},
		[]string{"status"},
	)

	// RunDuration measures a complete run
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "run_duration_seconds",
			Help: "Comparison run duration in seconds",
		},
	)
)

var registerOnce sync.Once

// InitPrometheus registers all collectors with the default registry
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCount)
		prometheus.MustRegister(SubmissionsParsed)
		prometheus.MustRegister(ComparisonCount)
		prometheus.MustRegister(ComparisonDuration)
		prometheus.MustRegister(RunCount)
		prometheus.MustRegister(RunDuration)
	})
}

// Handler returns Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

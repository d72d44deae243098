package metrics

import "github.com/prometheus/client_golang/prometheus"

// Filter engine, cache and job Prometheus metrics.
var (
	FilterExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "filter_executions_total",
			Help:      "Total number of filter executions",
		},
		[]string{"proximity", "status"}, // proximity: "true"/"false"; status: "ok"/"error"
	)

	FilterExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "directory",
			Name:      "filter_execution_duration_seconds",
			Help:      "Filter execution duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"proximity"},
	)

	FilterCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "directory",
			Name:      "filter_proximity_candidates",
			Help:      "Number of records returned by proximity search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "result_cache_total",
			Help:      "Filter result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "job_runs_total",
			Help:      "Total number of background job runs",
		},
		[]string{"job", "status"},
	)
)

var filterMetricsRegistered bool

// RegisterFilterMetrics registers filter, cache and job metrics. Must be called once from main.
func RegisterFilterMetrics() {
	if filterMetricsRegistered {
		return
	}
	prometheus.MustRegister(FilterExecutionsTotal)
	prometheus.MustRegister(FilterExecutionDuration)
	prometheus.MustRegister(FilterCandidates)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(JobRunsTotal)
	filterMetricsRegistered = true
}

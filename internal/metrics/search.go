package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation query metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reko",
			Name:      "searches_total",
			Help:      "Total number of recommendation queries",
		},
		[]string{"mode"}, // text / image / image_text / vector / similar
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reko",
			Name:      "search_duration_seconds",
			Help:      "Recommendation query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	RelaxationStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reko",
			Name:      "relaxation_stage_total",
			Help:      "Queries in which a relaxation stage or override contributed results",
		},
		[]string{"stage"}, // category_relax / any_relax / min_unique_override
	)

	FallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reko",
			Name:      "keyword_fallback_total",
			Help:      "Queries answered by the keyword fallback scorer",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(RelaxationStageTotal)
	prometheus.MustRegister(FallbackTotal)
	searchMetricsRegistered = true
}

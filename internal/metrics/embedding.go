package metrics

import "github.com/prometheus/client_golang/prometheus"

// Encoder Prometheus metrics.
var (
	EncoderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reko",
			Name:      "encoder_requests_total",
			Help:      "Total number of encoder requests",
		},
		[]string{"provider", "modality", "status"},
	)

	EncoderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reko",
			Name:      "encoder_request_duration_seconds",
			Help:      "Encoder request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "modality"},
	)

	EncoderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reko",
			Name:      "encoder_errors_total",
			Help:      "Total encoder errors",
		},
		[]string{"provider", "modality", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reko",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses at startup",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var encoderMetricsRegistered bool

// RegisterEncoderMetrics registers encoder metrics. Must be called once from main.
func RegisterEncoderMetrics() {
	if encoderMetricsRegistered {
		return
	}
	prometheus.MustRegister(EncoderRequestsTotal)
	prometheus.MustRegister(EncoderRequestDuration)
	prometheus.MustRegister(EncoderErrorsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	encoderMetricsRegistered = true
}

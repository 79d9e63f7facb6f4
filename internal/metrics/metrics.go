package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Media gallery metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "media",
			Subsystem: "gallery",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "media",
			Subsystem: "gallery",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Lifecycle operations by media type and outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "media",
			Subsystem: "gallery",
			Name:      "operations_total",
			Help:      "Total lifecycle operations",
		},
		[]string{"media_type", "operation", "result"},
	)

	// Stats counts replaced by zero after a failure
	StatsFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "media",
			Subsystem: "gallery",
			Name:      "stats_fallbacks_total",
			Help:      "Per-type counts reported as zero because the count failed",
		},
		[]string{"media_type"},
	)

	// Generation events consumed
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "media",
			Subsystem: "gallery",
			Name:      "ingest_events_total",
			Help:      "Generation events consumed from the ingest topic",
		},
		[]string{"media_type", "result"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

func RecordOperation(mediaType, operation, result string) {
	OperationsTotal.WithLabelValues(mediaType, operation, result).Inc()
}

func RecordStatsFallback(mediaType string) {
	StatsFallbacksTotal.WithLabelValues(mediaType).Inc()
}

func RecordIngest(mediaType, result string) {
	IngestTotal.WithLabelValues(mediaType, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

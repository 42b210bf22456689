package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pdfrag"

// Model and pipeline Prometheus metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Total number of requests to the model service",
		},
		[]string{"kind", "provider", "model", "status"}, // kind: "embed" / "generate"
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Model service request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind", "provider", "model"},
	)

	ChunksAddedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "populate_chunks_added_total",
			Help:      "Chunks added to the vector store by populate",
		},
	)

	IngestionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "populate_file_failures_total",
			Help:      "PDF files skipped because they could not be read",
		},
	)

	StoreRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Records currently held by the vector store",
		},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Retrieval cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers all metrics with the default registry. Call once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ModelRequestsTotal,
			ModelRequestDuration,
			ChunksAddedTotal,
			IngestionFailuresTotal,
			StoreRecords,
			QueryCacheTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

// ObserveModelRequest records one call to the model service.
func ObserveModelRequest(kind, provider, model string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ModelRequestsTotal.WithLabelValues(kind, provider, model, status).Inc()
	ModelRequestDuration.WithLabelValues(kind, provider, model).Observe(d.Seconds())
}

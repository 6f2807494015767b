// Package prometheus implements the metrics interfaces on the Prometheus
// client. Importing it (for side effects) registers the constructors with
// pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/metrics"
)

func init() {
	metrics.RegisterChunkMetricsConstructor(NewChunkMetrics)
}

// chunkMetrics is the Prometheus implementation of chunk.Metrics.
type chunkMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	rollbacksTotal    prometheus.Counter
	rolledBackChunks  prometheus.Counter
}

// NewChunkMetrics creates a Prometheus-backed chunk.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewChunkMetrics() chunk.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &chunkMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_chunk_operations_total",
				Help: "Total number of chunk store/read operations by provider and status",
			},
			[]string{"operation", "provider", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "chunkstore_chunk_operation_duration_milliseconds",
				Help: "Duration of chunk operations in milliseconds",
				Buckets: []float64{
					1,     // 1ms - memory provider
					10,    // 10ms - local disk
					50,    // 50ms
					100,   // 100ms - remote small chunks
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s - large chunks over slow links
					30000, // 30s
				},
			},
			[]string{"operation", "provider"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_chunk_bytes_total",
				Help: "Plaintext and stored bytes moved through the chunk pipeline",
			},
			[]string{"operation", "kind"},
		),
		rollbacksTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "chunkstore_upload_rollbacks_total",
				Help: "Number of failed uploads that triggered a rollback sweep",
			},
		),
		rolledBackChunks: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "chunkstore_rolled_back_chunks_total",
				Help: "Number of chunk descriptors removed by rollback sweeps",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *chunkMetrics) ObserveChunkStored(provider string, plaintextBytes, storedBytes int64, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues("store", provider, status(err)).Inc()
	m.operationDuration.WithLabelValues("store", provider).Observe(float64(duration.Milliseconds()))
	if err == nil {
		m.bytesTransferred.WithLabelValues("store", "plaintext").Add(float64(plaintextBytes))
		m.bytesTransferred.WithLabelValues("store", "stored").Add(float64(storedBytes))
	}
}

func (m *chunkMetrics) ObserveChunkRead(provider string, plaintextBytes int64, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues("read", provider, status(err)).Inc()
	m.operationDuration.WithLabelValues("read", provider).Observe(float64(duration.Milliseconds()))
	if err == nil {
		m.bytesTransferred.WithLabelValues("read", "plaintext").Add(float64(plaintextBytes))
	}
}

func (m *chunkMetrics) ObserveRollback(chunksRemoved int64) {
	m.rollbacksTotal.Inc()
	m.rolledBackChunks.Add(float64(chunksRemoved))
}

package metrics

import (
	"github.com/marmos91/chunkstore/pkg/chunk"
)

// NewChunkMetrics creates a Prometheus-backed chunk.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called); pass
// the nil straight to the chunk manager for zero overhead.
func NewChunkMetrics() chunk.Metrics {
	if !IsEnabled() || newPrometheusChunkMetrics == nil {
		return nil
	}
	return newPrometheusChunkMetrics()
}

// newPrometheusChunkMetrics is registered by pkg/metrics/prometheus during
// package initialization. The indirection keeps this package free of a
// prometheus import cycle.
var newPrometheusChunkMetrics func() chunk.Metrics

// RegisterChunkMetricsConstructor registers the Prometheus chunk metrics
// constructor.
func RegisterChunkMetricsConstructor(constructor func() chunk.Metrics) {
	newPrometheusChunkMetrics = constructor
}

package metrics

import (
	"github.com/marmos91/chunkstore/pkg/cache"
)

// NewCacheMetrics creates a Prometheus-backed cache.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called); pass
// the nil straight to the cached repositories for zero overhead.
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() || newPrometheusCacheMetrics == nil {
		return nil
	}
	return newPrometheusCacheMetrics()
}

// newPrometheusCacheMetrics is registered by pkg/metrics/prometheus during
// package initialization.
var newPrometheusCacheMetrics func() cache.Metrics

// RegisterCacheMetricsConstructor registers the Prometheus cache metrics
// constructor.
func RegisterCacheMetricsConstructor(constructor func() cache.Metrics) {
	newPrometheusCacheMetrics = constructor
}

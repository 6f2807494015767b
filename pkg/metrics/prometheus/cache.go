package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/chunkstore/pkg/cache"
	"github.com/marmos91/chunkstore/pkg/metrics"
)

func init() {
	metrics.RegisterCacheMetricsConstructor(NewCacheMetrics)
}

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	hitsTotal   *prometheus.CounterVec
	missesTotal *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCacheMetrics() cache.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &cacheMetrics{
		hitsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_cache_hits_total",
				Help: "Descriptor cache hits by descriptor kind",
			},
			[]string{"kind"},
		),
		missesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_cache_misses_total",
				Help: "Descriptor cache misses by descriptor kind",
			},
			[]string{"kind"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_cache_errors_total",
				Help: "Descriptor cache operation failures by operation",
			},
			[]string{"operation"},
		),
	}
}

func (m *cacheMetrics) ObserveHit(kind string)  { m.hitsTotal.WithLabelValues(kind).Inc() }
func (m *cacheMetrics) ObserveMiss(kind string) { m.missesTotal.WithLabelValues(kind).Inc() }
func (m *cacheMetrics) ObserveError(op string)  { m.errorsTotal.WithLabelValues(op).Inc() }

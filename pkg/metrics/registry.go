// Package metrics hosts the Prometheus registry and the factories that
// hand metrics collectors to the core packages. Collection is opt-in:
// until InitRegistry is called, every factory returns nil and the core
// runs with zero metrics overhead.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry enables metrics collection with a fresh registry. Safe to
// call once at startup, before any factory.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the active registry, or nil when metrics are
// disabled. Expose it via promhttp when serving a scrape endpoint.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

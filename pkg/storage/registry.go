package storage

import (
	"fmt"
	"sync"
)

// Registry maps provider IDs to provider instances.
//
// Registration happens once at startup; afterwards the registry is
// read-mostly. Resolution by ID is the read path for every stored chunk, so
// a missing provider is a hard error rather than a silent skip.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string // registration order, used by strategies
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Duplicate IDs are rejected.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("cannot register nil provider")
	}
	if p.ID() == "" {
		return fmt.Errorf("cannot register provider with empty ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[p.ID()]; ok {
		return fmt.Errorf("provider %q already registered", p.ID())
	}
	r.providers[p.ID()] = p
	r.order = append(r.order, p.ID())
	return nil
}

// Resolve returns the provider carrying the given ID.
func (r *Registry) Resolve(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return p, nil
}

// Providers returns all registered providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

package storage

import (
	"fmt"
	"sync/atomic"
)

// Strategy selects the provider for a chunk about to be written.
// Strategies are write-time only; reads resolve the provider recorded in the
// chunk descriptor.
type Strategy interface {
	Name() string
	Select(providers []Provider) (Provider, error)
}

// RoundRobin cycles through providers with a monotonic counter. With N
// providers, k×N sequential selections pick each provider exactly k times.
type RoundRobin struct {
	counter atomic.Uint64
}

// NewRoundRobin creates a round-robin strategy starting at provider 0.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (s *RoundRobin) Name() string { return "roundrobin" }

func (s *RoundRobin) Select(providers []Provider) (Provider, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers available for selection")
	}
	n := s.counter.Add(1) - 1
	return providers[n%uint64(len(providers))], nil
}

// FirstAvailable always picks the first registered provider. Useful for
// single-backend deployments.
type FirstAvailable struct{}

func (FirstAvailable) Name() string { return "first" }

func (FirstAvailable) Select(providers []Provider) (Provider, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers available for selection")
	}
	return providers[0], nil
}

// NewStrategy builds a strategy by config name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "", "roundrobin", "RoundRobin":
		return NewRoundRobin(), nil
	case "first", "First":
		return FirstAvailable{}, nil
	default:
		return nil, fmt.Errorf("unknown distribution strategy %q", name)
	}
}

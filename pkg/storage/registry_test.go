package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/chunkstore/pkg/storage"
	"github.com/marmos91/chunkstore/pkg/storage/memory"
)

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := storage.NewRegistry()

	a := memory.New("prov-a")
	b := memory.New("prov-b")
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	got, err := reg.Resolve("prov-a")
	require.NoError(t, err)
	assert.Equal(t, "prov-a", got.ID())

	_, err = reg.Resolve("ghost")
	assert.ErrorIs(t, err, storage.ErrProviderNotFound)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := storage.NewRegistry()
	require.NoError(t, reg.Register(memory.New("p")))
	assert.Error(t, reg.Register(memory.New("p")))
}

func TestRegistryProvidersOrder(t *testing.T) {
	reg := storage.NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Register(memory.New(id)))
	}

	providers := reg.Providers()
	require.Len(t, providers, 3)
	assert.Equal(t, "c", providers[0].ID())
	assert.Equal(t, "a", providers[1].ID())
	assert.Equal(t, "b", providers[2].ID())
}

func TestRoundRobinFairness(t *testing.T) {
	reg := storage.NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Register(memory.New(id)))
	}

	strategy := storage.NewRoundRobin()
	providers := reg.Providers()

	const k = 5
	counts := make(map[string]int)
	for i := 0; i < k*len(providers); i++ {
		p, err := strategy.Select(providers)
		require.NoError(t, err)
		counts[p.ID()]++
	}

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, k, counts[id], "provider %s", id)
	}
}

func TestRoundRobinDeterministicOrder(t *testing.T) {
	providers := []storage.Provider{memory.New("a"), memory.New("b")}
	strategy := storage.NewRoundRobin()

	var order []string
	for i := 0; i < 4; i++ {
		p, err := strategy.Select(providers)
		require.NoError(t, err)
		order = append(order, p.ID())
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
}

func TestRoundRobinEmpty(t *testing.T) {
	strategy := storage.NewRoundRobin()
	_, err := strategy.Select(nil)
	assert.Error(t, err)
}

func TestNewStrategy(t *testing.T) {
	s, err := storage.NewStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "roundrobin", s.Name())

	s, err = storage.NewStrategy("first")
	require.NoError(t, err)
	assert.Equal(t, "first", s.Name())

	_, err = storage.NewStrategy("weighted-lottery")
	assert.Error(t, err)
}

func TestProviderErrorWrapping(t *testing.T) {
	ctx := context.Background()
	p := memory.New("mem")

	_, err := p.ReadChunk(ctx, "k", "mem/k", "cid")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))

	var perr *storage.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mem", perr.ProviderID)
	assert.Equal(t, "readChunk", perr.Op)
}

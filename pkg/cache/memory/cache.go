// Package memory implements an in-process descriptor cache, used in tests
// and single-node deployments without Redis.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Cache is a map-backed cache.Cache with lazy expiry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, false, nil
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	return ok && !e.expired(time.Now()), nil
}

// Len reports the number of stored entries, including expired ones not yet
// overwritten. Test helper.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

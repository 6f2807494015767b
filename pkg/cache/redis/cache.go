// Package redis implements the descriptor cache on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Config holds configuration for the Redis cache.
type Config struct {
	// Addr is the Redis server address as "host:port".
	Addr string

	// Password is the server password (optional).
	Password string

	// DB is the logical database number.
	DB int

	// KeyPrefix namespaces all cache keys (e.g., "chunkstore:").
	KeyPrefix string
}

// Cache is a Redis-backed cache.Cache.
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a cache on an existing Redis client.
func New(client *redis.Client, keyPrefix string) *Cache {
	return &Cache{client: client, keyPrefix: keyPrefix}
}

// NewFromConfig dials Redis and verifies the connection with a ping.
func NewFromConfig(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return New(client, cfg.KeyPrefix), nil
}

// Close releases the underlying client.
func (c *Cache) Close() error { return c.client.Close() }

func (c *Cache) key(k string) string { return c.keyPrefix + k }

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

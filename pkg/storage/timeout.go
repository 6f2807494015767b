package storage

import (
	"context"
	"io"
	"time"
)

// timeoutProvider enforces a per-operation deadline on a wrapped provider.
// Timeouts surface as the wrapped operation's error (context.DeadlineExceeded
// inside a provider Error), which callers treat like any other provider
// failure.
type timeoutProvider struct {
	Provider
	timeout time.Duration
}

// WithTimeout wraps p so every operation runs under the given deadline.
// A zero or negative timeout returns p unchanged.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &timeoutProvider{Provider: p, timeout: timeout}
}

func (t *timeoutProvider) WriteChunk(ctx context.Context, key string, r io.Reader, correlationID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.WriteChunk(ctx, key, r, correlationID)
}

func (t *timeoutProvider) ReadChunk(ctx context.Context, key, storagePath string, correlationID string) (io.ReadCloser, error) {
	// No deferred cancel: the returned reader outlives this call. The
	// deadline still bounds the open itself.
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	rc, err := t.Provider.ReadChunk(ctx, key, storagePath, correlationID)
	if err != nil {
		cancel()
		return nil, err
	}
	return &cancelReadCloser{ReadCloser: rc, cancel: cancel}, nil
}

func (t *timeoutProvider) ChunkExists(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.ChunkExists(ctx, key, storagePath, correlationID)
}

func (t *timeoutProvider) DeleteChunk(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.DeleteChunk(ctx, key, storagePath, correlationID)
}

// cancelReadCloser releases the timeout context when the chunk reader closes.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

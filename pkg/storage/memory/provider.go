// Package memory provides an in-memory storage provider, used by tests and
// as a scratch backend.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/chunkstore/pkg/storage"
)

// Provider keeps chunk blobs in a map keyed by storage path.
type Provider struct {
	id    string
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an in-memory provider with the given ID.
func New(id string) *Provider {
	return &Provider{id: id, blobs: make(map[string][]byte)}
}

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Kind() string { return "memory" }

func (p *Provider) WriteChunk(ctx context.Context, key string, r io.Reader, correlationID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	path := fmt.Sprintf("mem/%s", key)

	p.mu.Lock()
	p.blobs[path] = data
	p.mu.Unlock()

	return path, nil
}

func (p *Provider) ReadChunk(ctx context.Context, key, storagePath string, correlationID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}

	p.mu.RLock()
	data, ok := p.blobs[storagePath]
	p.mu.RUnlock()

	if !ok {
		return nil, storage.NewError(p.id, "readChunk", key, storage.ErrChunkNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *Provider) ChunkExists(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}

	p.mu.RLock()
	_, ok := p.blobs[storagePath]
	p.mu.RUnlock()
	return ok, nil
}

func (p *Provider) DeleteChunk(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}

	p.mu.Lock()
	delete(p.blobs, storagePath)
	p.mu.Unlock()
	return true, nil
}

// Len returns the number of stored blobs.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.blobs)
}

// Blob returns a copy of the stored blob, or nil if absent. Test helper.
func (p *Provider) Blob(storagePath string) []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, ok := p.blobs[storagePath]
	if !ok {
		return nil
	}
	return append([]byte(nil), data...)
}

// SetBlob overwrites the stored blob. Test helper for corruption scenarios.
func (p *Provider) SetBlob(storagePath string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[storagePath] = append([]byte(nil), data...)
}

// Package storage defines the provider contract over heterogeneous chunk
// backends, the provider registry, and the write-time distribution strategy.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Provider persists, retrieves, and deletes opaque chunk blobs.
//
// Writes are atomic per chunk: after WriteChunk returns, the blob is either
// fully retrievable under the returned storage path or does not exist.
// Providers are stateless across chunks; one instance may serve many
// concurrent operations. Providers never retry; the caller decides.
type Provider interface {
	// ID returns the stable provider identifier recorded in chunk
	// descriptors and resolved through the registry on read.
	ID() string

	// Kind returns a human-readable backend kind (filesystem, gridfs, ...).
	Kind() string

	// WriteChunk stores the blob and returns an opaque locator the same
	// provider understands on later reads.
	WriteChunk(ctx context.Context, key string, r io.Reader, correlationID string) (storagePath string, err error)

	// ReadChunk returns the exact bytes previously written under key.
	ReadChunk(ctx context.Context, key, storagePath string, correlationID string) (io.ReadCloser, error)

	// ChunkExists reports whether the blob is present.
	ChunkExists(ctx context.Context, key, storagePath string, correlationID string) (bool, error)

	// DeleteChunk removes the blob. Deleting a missing blob returns true.
	DeleteChunk(ctx context.Context, key, storagePath string, correlationID string) (bool, error)
}

// ErrChunkNotFound indicates the requested blob does not exist on the backend.
var ErrChunkNotFound = errors.New("chunk blob not found")

// ErrProviderNotFound indicates no registered provider carries the ID.
var ErrProviderNotFound = errors.New("storage provider not registered")

// Error is the typed failure surfaced by every provider operation. It names
// the provider and the failing operation and wraps the original cause.
type Error struct {
	ProviderID string
	Op         string // writeChunk, readChunk, chunkExists, deleteChunk
	Key        string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: provider %s key %s: %v", e.Op, e.ProviderID, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err into a provider Error.
func NewError(providerID, op, key string, err error) *Error {
	return &Error{ProviderID: providerID, Op: op, Key: key, Err: err}
}

// IsNotFound reports whether err is a missing-blob condition, possibly
// wrapped in a provider Error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChunkNotFound)
}

// Package badger provides a storage provider backed by an embedded Badger
// key-value store, for single-node deployments that want durability without
// an external service. The storage path is the chunk key itself.
package badger

import (
	"bytes"
	"context"
	"errors"
	"io"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/chunkstore/pkg/storage"
)

// Provider is a Badger-backed storage.Provider.
type Provider struct {
	id string
	db *badgerdb.DB
}

// New creates a provider on an already-open Badger database.
func New(id string, db *badgerdb.DB) *Provider {
	return &Provider{id: id, db: db}
}

// Open opens (or creates) a Badger database at path and returns a provider
// on it. The caller owns the database lifecycle via Close.
func Open(id, path string) (*Provider, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, err
	}
	return New(id, db), nil
}

// Close closes the underlying database.
func (p *Provider) Close() error { return p.db.Close() }

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Kind() string { return "badger" }

func (p *Provider) WriteChunk(ctx context.Context, key string, r io.Reader, correlationID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	// A single Update transaction commits atomically.
	err = p.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	return key, nil
}

func (p *Provider) ReadChunk(ctx context.Context, key, storagePath string, correlationID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}

	var data []byte
	err := p.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(storagePath))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, storage.NewError(p.id, "readChunk", key, storage.ErrChunkNotFound)
		}
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *Provider) ChunkExists(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}

	err := p.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(storagePath))
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return false, nil
		}
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}
	return true, nil
}

func (p *Provider) DeleteChunk(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}

	// Badger delete of a missing key succeeds, matching the idempotent
	// delete contract.
	err := p.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(storagePath))
	})
	if err != nil {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}
	return true, nil
}

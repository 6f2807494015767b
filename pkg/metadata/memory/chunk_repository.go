package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

// ChunkRepository is a map-backed metadata.ChunkRepository.
type ChunkRepository struct {
	mu     sync.RWMutex
	chunks map[string]*metadata.ChunkDescriptor
}

// NewChunkRepository creates an empty in-memory chunk repository.
func NewChunkRepository() *ChunkRepository {
	return &ChunkRepository{chunks: make(map[string]*metadata.ChunkDescriptor)}
}

func (r *ChunkRepository) Add(ctx context.Context, chunk *metadata.ChunkDescriptor, correlationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[chunk.ID] = chunk.Clone()
	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string, correlationID string) (*metadata.ChunkDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chunks[id]
	if !ok {
		return nil, metadata.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *ChunkRepository) Update(ctx context.Context, chunk *metadata.ChunkDescriptor, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chunks[chunk.ID]; !ok {
		return false, nil
	}
	r.chunks[chunk.ID] = chunk.Clone()
	return true, nil
}

func (r *ChunkRepository) Delete(ctx context.Context, id string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chunks[id]; !ok {
		return false, nil
	}
	delete(r.chunks, id)
	return true, nil
}

func (r *ChunkRepository) GetAll(ctx context.Context, correlationID string) ([]*metadata.ChunkDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*metadata.ChunkDescriptor, 0, len(r.chunks))
	for _, c := range r.chunks {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ChunkRepository) GetChunksByFileID(ctx context.Context, fileID string, correlationID string) ([]*metadata.ChunkDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*metadata.ChunkDescriptor
	for _, c := range r.chunks {
		if c.FileID == fileID {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (r *ChunkRepository) DeleteChunksByFileID(ctx context.Context, fileID string, correlationID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, c := range r.chunks {
		if c.FileID == fileID {
			delete(r.chunks, id)
			removed++
		}
	}
	return removed, nil
}

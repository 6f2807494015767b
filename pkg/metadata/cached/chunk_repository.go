package cached

import (
	"context"
	"encoding/json"
	"time"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/cache"
	"github.com/marmos91/chunkstore/pkg/metadata"
)

const chunkKeyPrefix = "chunk:"

// ChunkRepository wraps a metadata.ChunkRepository with a cache. Only
// single-descriptor lookups are cached; per-file chunk lists go straight to
// the repository.
type ChunkRepository struct {
	repo    metadata.ChunkRepository
	cache   cache.Cache
	ttl     time.Duration
	metrics cache.Metrics
}

// NewChunkRepository creates a cached chunk repository; metrics may be nil.
func NewChunkRepository(repo metadata.ChunkRepository, c cache.Cache, ttl time.Duration, metrics cache.Metrics) *ChunkRepository {
	return &ChunkRepository{repo: repo, cache: c, ttl: ttl, metrics: metrics}
}

func chunkKey(id string) string { return chunkKeyPrefix + id }

func (r *ChunkRepository) cacheSet(ctx context.Context, chunk *metadata.ChunkDescriptor) {
	data, err := json.Marshal(chunk)
	if err != nil {
		logger.WarnCtx(ctx, "failed to encode chunk descriptor for cache",
			logger.KeyChunkID, chunk.ID, logger.KeyError, err)
		return
	}
	if err := r.cache.Set(ctx, chunkKey(chunk.ID), data, r.ttl); err != nil {
		logger.WarnCtx(ctx, "failed to cache chunk descriptor",
			logger.KeyChunkID, chunk.ID, logger.KeyError, err)
	}
}

func (r *ChunkRepository) cacheInvalidate(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, chunkKey(id)); err != nil {
		logger.WarnCtx(ctx, "failed to invalidate cached chunk descriptor",
			logger.KeyChunkID, id, logger.KeyError, err)
	}
}

func (r *ChunkRepository) Add(ctx context.Context, chunk *metadata.ChunkDescriptor, correlationID string) error {
	if err := r.repo.Add(ctx, chunk, correlationID); err != nil {
		return err
	}
	r.cacheSet(ctx, chunk)
	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string, correlationID string) (*metadata.ChunkDescriptor, error) {
	data, hit, err := r.cache.Get(ctx, chunkKey(id))
	if err != nil {
		if r.metrics != nil {
			r.metrics.ObserveError("get")
		}
		logger.WarnCtx(ctx, "chunk descriptor cache read failed",
			logger.KeyChunkID, id, logger.KeyError, err)
	} else if hit {
		var chunk metadata.ChunkDescriptor
		if err := json.Unmarshal(data, &chunk); err == nil {
			if r.metrics != nil {
				r.metrics.ObserveHit("chunk")
			}
			logger.DebugCtx(ctx, "chunk descriptor cache hit", logger.KeyChunkID, id)
			return &chunk, nil
		}
		r.cacheInvalidate(ctx, id)
	} else if r.metrics != nil {
		r.metrics.ObserveMiss("chunk")
	}

	chunk, err := r.repo.GetByID(ctx, id, correlationID)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, chunk)
	return chunk, nil
}

func (r *ChunkRepository) Update(ctx context.Context, chunk *metadata.ChunkDescriptor, correlationID string) (bool, error) {
	matched, err := r.repo.Update(ctx, chunk, correlationID)
	if err != nil {
		return matched, err
	}
	if matched {
		r.cacheSet(ctx, chunk)
	}
	return matched, nil
}

func (r *ChunkRepository) Delete(ctx context.Context, id string, correlationID string) (bool, error) {
	r.cacheInvalidate(ctx, id)
	return r.repo.Delete(ctx, id, correlationID)
}

func (r *ChunkRepository) GetAll(ctx context.Context, correlationID string) ([]*metadata.ChunkDescriptor, error) {
	return r.repo.GetAll(ctx, correlationID)
}

func (r *ChunkRepository) GetChunksByFileID(ctx context.Context, fileID string, correlationID string) ([]*metadata.ChunkDescriptor, error) {
	return r.repo.GetChunksByFileID(ctx, fileID, correlationID)
}

func (r *ChunkRepository) DeleteChunksByFileID(ctx context.Context, fileID string, correlationID string) (int64, error) {
	// Invalidate every chunk entry for the file before the bulk delete.
	chunks, err := r.repo.GetChunksByFileID(ctx, fileID, correlationID)
	if err == nil {
		for _, chunk := range chunks {
			r.cacheInvalidate(ctx, chunk.ID)
		}
	}
	return r.repo.DeleteChunksByFileID(ctx, fileID, correlationID)
}

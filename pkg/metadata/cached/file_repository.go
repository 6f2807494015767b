// Package cached decorates metadata repositories with a write-through
// descriptor cache. The repository is always the source of truth: writes go
// to the repository first and are then mirrored into the cache, reads try
// the cache and fall back to the repository, and deletes invalidate the
// cache before acknowledging. Cache failures are logged and never surfaced
// to the caller.
package cached

import (
	"context"
	"encoding/json"
	"time"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/cache"
	"github.com/marmos91/chunkstore/pkg/metadata"
)

const fileKeyPrefix = "file:"

// FileRepository wraps a metadata.FileRepository with a cache.
type FileRepository struct {
	repo    metadata.FileRepository
	cache   cache.Cache
	ttl     time.Duration
	metrics cache.Metrics
}

// NewFileRepository creates a cached file repository. A ttl of zero means
// cached descriptors never expire; metrics may be nil.
func NewFileRepository(repo metadata.FileRepository, c cache.Cache, ttl time.Duration, metrics cache.Metrics) *FileRepository {
	return &FileRepository{repo: repo, cache: c, ttl: ttl, metrics: metrics}
}

func fileKey(id string) string { return fileKeyPrefix + id }

func (r *FileRepository) cacheSet(ctx context.Context, file *metadata.FileDescriptor, correlationID string) {
	data, err := json.Marshal(file)
	if err != nil {
		logger.WarnCtx(ctx, "failed to encode file descriptor for cache",
			logger.KeyFileID, file.ID, logger.KeyError, err)
		return
	}
	if err := r.cache.Set(ctx, fileKey(file.ID), data, r.ttl); err != nil {
		if r.metrics != nil {
			r.metrics.ObserveError("set")
		}
		logger.WarnCtx(ctx, "failed to cache file descriptor",
			logger.KeyFileID, file.ID, logger.KeyError, err)
	}
}

func (r *FileRepository) cacheInvalidate(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, fileKey(id)); err != nil {
		if r.metrics != nil {
			r.metrics.ObserveError("delete")
		}
		logger.WarnCtx(ctx, "failed to invalidate cached file descriptor",
			logger.KeyFileID, id, logger.KeyError, err)
	}
}

func (r *FileRepository) Add(ctx context.Context, file *metadata.FileDescriptor, correlationID string) error {
	if err := r.repo.Add(ctx, file, correlationID); err != nil {
		return err
	}
	r.cacheSet(ctx, file, correlationID)
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string, correlationID string) (*metadata.FileDescriptor, error) {
	data, hit, err := r.cache.Get(ctx, fileKey(id))
	if err != nil {
		if r.metrics != nil {
			r.metrics.ObserveError("get")
		}
		logger.WarnCtx(ctx, "file descriptor cache read failed",
			logger.KeyFileID, id, logger.KeyError, err)
	} else if hit {
		var file metadata.FileDescriptor
		if err := json.Unmarshal(data, &file); err == nil {
			if r.metrics != nil {
				r.metrics.ObserveHit("file")
			}
			logger.DebugCtx(ctx, "file descriptor cache hit", logger.KeyFileID, id)
			return &file, nil
		}
		// Corrupt entry: drop it and fall through to the repository.
		r.cacheInvalidate(ctx, id)
	} else if r.metrics != nil {
		r.metrics.ObserveMiss("file")
	}

	file, err := r.repo.GetByID(ctx, id, correlationID)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, file, correlationID)
	return file, nil
}

func (r *FileRepository) Update(ctx context.Context, file *metadata.FileDescriptor, correlationID string) (bool, error) {
	matched, err := r.repo.Update(ctx, file, correlationID)
	if err != nil {
		return matched, err
	}
	if matched {
		r.cacheSet(ctx, file, correlationID)
	}
	return matched, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string, correlationID string) (bool, error) {
	// Invalidate before the repository delete is acknowledged so no reader
	// can observe a cached descriptor for a deleted file.
	r.cacheInvalidate(ctx, id)
	return r.repo.Delete(ctx, id, correlationID)
}

// Query operations pass through uncached: list results are unbounded and
// would be invalidated by any write.

func (r *FileRepository) GetAll(ctx context.Context, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.repo.GetAll(ctx, correlationID)
}

func (r *FileRepository) GetByFullPath(ctx context.Context, fullPath string, correlationID string) (*metadata.FileDescriptor, error) {
	return r.repo.GetByFullPath(ctx, fullPath, correlationID)
}

func (r *FileRepository) GetChildren(ctx context.Context, parentID string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.repo.GetChildren(ctx, parentID, correlationID)
}

func (r *FileRepository) GetByParentPath(ctx context.Context, parentPath string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.repo.GetByParentPath(ctx, parentPath, correlationID)
}

func (r *FileRepository) GetByType(ctx context.Context, fileType metadata.FileType, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.repo.GetByType(ctx, fileType, correlationID)
}

func (r *FileRepository) GetNonIndexed(ctx context.Context, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.repo.GetNonIndexed(ctx, correlationID)
}

func (r *FileRepository) GetByTags(ctx context.Context, tags []string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.repo.GetByTags(ctx, tags, correlationID)
}

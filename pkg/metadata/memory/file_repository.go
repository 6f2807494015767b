// Package memory provides in-memory repository implementations, used by
// tests and single-process deployments that do not need durability.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

// FileRepository is a map-backed metadata.FileRepository.
// Descriptors are cloned on the way in and out so callers can never mutate
// repository state through shared pointers.
type FileRepository struct {
	mu    sync.RWMutex
	files map[string]*metadata.FileDescriptor
}

// NewFileRepository creates an empty in-memory file repository.
func NewFileRepository() *FileRepository {
	return &FileRepository{files: make(map[string]*metadata.FileDescriptor)}
}

func (r *FileRepository) Add(ctx context.Context, file *metadata.FileDescriptor, correlationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[file.ID] = file.Clone()
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string, correlationID string) (*metadata.FileDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return nil, metadata.ErrNotFound
	}
	return f.Clone(), nil
}

func (r *FileRepository) Update(ctx context.Context, file *metadata.FileDescriptor, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[file.ID]; !ok {
		return false, nil
	}
	r.files[file.ID] = file.Clone()
	return true, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string, correlationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return false, nil
	}
	delete(r.files, id)
	return true, nil
}

func (r *FileRepository) GetAll(ctx context.Context, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.query(ctx, func(f *metadata.FileDescriptor) bool { return true })
}

func (r *FileRepository) GetByFullPath(ctx context.Context, fullPath string, correlationID string) (*metadata.FileDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.files {
		if f.FullPath == fullPath {
			return f.Clone(), nil
		}
	}
	return nil, metadata.ErrNotFound
}

func (r *FileRepository) GetChildren(ctx context.Context, parentID string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.query(ctx, func(f *metadata.FileDescriptor) bool { return f.ParentID == parentID })
}

func (r *FileRepository) GetByParentPath(ctx context.Context, prefix string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.query(ctx, func(f *metadata.FileDescriptor) bool { return strings.HasPrefix(f.FullPath, prefix) })
}

func (r *FileRepository) GetByType(ctx context.Context, fileType metadata.FileType, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.query(ctx, func(f *metadata.FileDescriptor) bool { return f.Type == fileType })
}

func (r *FileRepository) GetNonIndexed(ctx context.Context, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.query(ctx, func(f *metadata.FileDescriptor) bool { return !f.IsIndexed })
}

func (r *FileRepository) GetByTags(ctx context.Context, tags []string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.query(ctx, func(f *metadata.FileDescriptor) bool {
		for _, want := range tags {
			found := false
			for _, have := range f.Tags {
				if have == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	})
}

// query returns clones of all descriptors matching the predicate, sorted by
// full path for deterministic output.
func (r *FileRepository) query(ctx context.Context, match func(*metadata.FileDescriptor) bool) ([]*metadata.FileDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*metadata.FileDescriptor
	for _, f := range r.files {
		if match(f) {
			out = append(out, f.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullPath < out[j].FullPath })
	return out, nil
}

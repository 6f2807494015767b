package metadata

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested descriptor does not exist.
var ErrNotFound = errors.New("descriptor not found")

// FileRepository stores file descriptors.
//
// Implementations guarantee that an Add followed by GetByID returns an equal
// descriptor, that Update is a full replacement keyed by ID reporting whether
// a document matched, and that Delete reports whether a document was removed.
// Every method takes the operation's correlation ID for log enrichment.
type FileRepository interface {
	Add(ctx context.Context, file *FileDescriptor, correlationID string) error
	GetByID(ctx context.Context, id string, correlationID string) (*FileDescriptor, error)
	Update(ctx context.Context, file *FileDescriptor, correlationID string) (bool, error)
	Delete(ctx context.Context, id string, correlationID string) (bool, error)
	GetAll(ctx context.Context, correlationID string) ([]*FileDescriptor, error)

	GetByFullPath(ctx context.Context, fullPath string, correlationID string) (*FileDescriptor, error)
	GetChildren(ctx context.Context, parentID string, correlationID string) ([]*FileDescriptor, error)
	GetByParentPath(ctx context.Context, prefix string, correlationID string) ([]*FileDescriptor, error)
	GetByType(ctx context.Context, fileType FileType, correlationID string) ([]*FileDescriptor, error)
	GetNonIndexed(ctx context.Context, correlationID string) ([]*FileDescriptor, error)

	// GetByTags returns files carrying ALL of the requested tags.
	GetByTags(ctx context.Context, tags []string, correlationID string) ([]*FileDescriptor, error)
}

// ChunkRepository stores chunk descriptors.
type ChunkRepository interface {
	Add(ctx context.Context, chunk *ChunkDescriptor, correlationID string) error
	GetByID(ctx context.Context, id string, correlationID string) (*ChunkDescriptor, error)
	Update(ctx context.Context, chunk *ChunkDescriptor, correlationID string) (bool, error)
	Delete(ctx context.Context, id string, correlationID string) (bool, error)
	GetAll(ctx context.Context, correlationID string) ([]*ChunkDescriptor, error)

	// GetChunksByFileID returns the file's chunks sorted by sequence number.
	GetChunksByFileID(ctx context.Context, fileID string, correlationID string) ([]*ChunkDescriptor, error)

	// DeleteChunksByFileID removes every chunk descriptor of the file and
	// returns how many were removed.
	DeleteChunksByFileID(ctx context.Context, fileID string, correlationID string) (int64, error)
}

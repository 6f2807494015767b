// Package gridfs provides a storage provider backed by MongoDB's GridFS
// blob facility. Each chunk blob is one GridFS file; the storage path is the
// hex-encoded GridFS file ID.
package gridfs

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marmos91/chunkstore/pkg/storage"
)

// Config holds configuration for the GridFS provider.
type Config struct {
	// BucketName is the GridFS bucket prefix. Default: "chunks".
	BucketName string
}

// Provider is a GridFS-backed storage.Provider.
type Provider struct {
	id     string
	bucket *gridfs.Bucket
}

// New creates a GridFS provider on the given database.
func New(id string, db *mongo.Database, cfg Config) (*Provider, error) {
	name := cfg.BucketName
	if name == "" {
		name = "chunks"
	}

	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, err
	}

	return &Provider{id: id, bucket: bucket}, nil
}

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Kind() string { return "gridfs" }

// applyDeadline mirrors the context deadline onto the bucket. The v1 driver's
// GridFS streams take deadlines rather than contexts.
func (p *Provider) applyDeadline(ctx context.Context, write bool) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	if write {
		return p.bucket.SetWriteDeadline(deadline)
	}
	return p.bucket.SetReadDeadline(deadline)
}

func (p *Provider) WriteChunk(ctx context.Context, key string, r io.Reader, correlationID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}
	if err := p.applyDeadline(ctx, true); err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	// GridFS uploads are atomic at the file level: the fs.files document is
	// written only after all fs.chunks documents are durable.
	objectID, err := p.bucket.UploadFromStream(key, r)
	if err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	return objectID.Hex(), nil
}

func (p *Provider) ReadChunk(ctx context.Context, key, storagePath string, correlationID string) (io.ReadCloser, error) {
	objectID, err := primitive.ObjectIDFromHex(storagePath)
	if err != nil {
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}
	if err := p.applyDeadline(ctx, false); err != nil {
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}

	stream, err := p.bucket.OpenDownloadStream(objectID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, storage.NewError(p.id, "readChunk", key, storage.ErrChunkNotFound)
		}
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}
	return stream, nil
}

func (p *Provider) ChunkExists(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(storagePath)
	if err != nil {
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}

	n, err := p.bucket.GetFilesCollection().CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}
	return n > 0, nil
}

func (p *Provider) DeleteChunk(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(storagePath)
	if err != nil {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}

	if err := ctx.Err(); err != nil {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}

	if err := p.bucket.Delete(objectID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return true, nil
		}
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}
	return true, nil
}

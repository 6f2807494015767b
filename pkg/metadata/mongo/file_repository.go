// Package mongo implements the metadata repositories on MongoDB
// collections. Descriptors are stored with their logical ID as the document
// _id, so repository lookups are primary-key reads.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

// FileRepository is a MongoDB-backed metadata.FileRepository.
type FileRepository struct {
	coll *mongo.Collection
}

// NewFileRepository creates a repository on the given collection.
func NewFileRepository(coll *mongo.Collection) *FileRepository {
	return &FileRepository{coll: coll}
}

// EnsureIndexes creates the indexes the query operations rely on.
func (r *FileRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fullPath", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parentId", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}
	return nil
}

func (r *FileRepository) Add(ctx context.Context, file *metadata.FileDescriptor, correlationID string) error {
	if _, err := r.coll.InsertOne(ctx, file); err != nil {
		return fmt.Errorf("failed to insert file %s: %w", file.ID, err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string, correlationID string) (*metadata.FileDescriptor, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *FileRepository) Update(ctx context.Context, file *metadata.FileDescriptor, correlationID string) (bool, error) {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": file.ID}, file)
	if err != nil {
		return false, fmt.Errorf("failed to update file %s: %w", file.ID, err)
	}
	return res.MatchedCount > 0, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string, correlationID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete file %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *FileRepository) GetAll(ctx context.Context, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.find(ctx, bson.M{})
}

func (r *FileRepository) GetByFullPath(ctx context.Context, fullPath string, correlationID string) (*metadata.FileDescriptor, error) {
	return r.findOne(ctx, bson.M{"fullPath": fullPath})
}

func (r *FileRepository) GetChildren(ctx context.Context, parentID string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.find(ctx, bson.M{"parentId": parentID})
}

func (r *FileRepository) GetByParentPath(ctx context.Context, parentPath string, correlationID string) ([]*metadata.FileDescriptor, error) {
	// Match direct children only: the parent path prefix followed by a
	// single path element.
	pattern := "^" + escapeRegex(parentPath) + "/[^/]+$"
	return r.find(ctx, bson.M{"fullPath": bson.M{"$regex": pattern}})
}

func (r *FileRepository) GetByType(ctx context.Context, fileType metadata.FileType, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.find(ctx, bson.M{"type": fileType})
}

func (r *FileRepository) GetNonIndexed(ctx context.Context, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.find(ctx, bson.M{"isIndexed": false})
}

func (r *FileRepository) GetByTags(ctx context.Context, tags []string, correlationID string) ([]*metadata.FileDescriptor, error) {
	return r.find(ctx, bson.M{"tags": bson.M{"$all": tags}})
}

func (r *FileRepository) findOne(ctx context.Context, filter bson.M) (*metadata.FileDescriptor, error) {
	var file metadata.FileDescriptor
	err := r.coll.FindOne(ctx, filter).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, metadata.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	return &file, nil
}

func (r *FileRepository) find(ctx context.Context, filter bson.M) ([]*metadata.FileDescriptor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "fullPath", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []*metadata.FileDescriptor
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return files, nil
}

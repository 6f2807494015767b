package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

// ChunkRepository is a MongoDB-backed metadata.ChunkRepository.
type ChunkRepository struct {
	coll *mongo.Collection
}

// NewChunkRepository creates a repository on the given collection.
func NewChunkRepository(coll *mongo.Collection) *ChunkRepository {
	return &ChunkRepository{coll: coll}
}

// EnsureIndexes creates the per-file lookup index.
func (r *ChunkRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fileId", Value: 1}, {Key: "sequenceNumber", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create chunk indexes: %w", err)
	}
	return nil
}

func (r *ChunkRepository) Add(ctx context.Context, chunk *metadata.ChunkDescriptor, correlationID string) error {
	if _, err := r.coll.InsertOne(ctx, chunk); err != nil {
		return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
	}
	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string, correlationID string) (*metadata.ChunkDescriptor, error) {
	var chunk metadata.ChunkDescriptor
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&chunk)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, metadata.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query chunk %s: %w", id, err)
	}
	return &chunk, nil
}

func (r *ChunkRepository) Update(ctx context.Context, chunk *metadata.ChunkDescriptor, correlationID string) (bool, error) {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": chunk.ID}, chunk)
	if err != nil {
		return false, fmt.Errorf("failed to update chunk %s: %w", chunk.ID, err)
	}
	return res.MatchedCount > 0, nil
}

func (r *ChunkRepository) Delete(ctx context.Context, id string, correlationID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete chunk %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *ChunkRepository) GetAll(ctx context.Context, correlationID string) ([]*metadata.ChunkDescriptor, error) {
	return r.find(ctx, bson.M{})
}

func (r *ChunkRepository) GetChunksByFileID(ctx context.Context, fileID string, correlationID string) ([]*metadata.ChunkDescriptor, error) {
	return r.find(ctx, bson.M{"fileId": fileID})
}

func (r *ChunkRepository) DeleteChunksByFileID(ctx context.Context, fileID string, correlationID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"fileId": fileID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for file %s: %w", fileID, err)
	}
	return res.DeletedCount, nil
}

func (r *ChunkRepository) find(ctx context.Context, filter bson.M) ([]*metadata.ChunkDescriptor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequenceNumber", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var chunks []*metadata.ChunkDescriptor
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}
	return chunks, nil
}

// escapeRegex escapes regex metacharacters in a path literal.
func escapeRegex(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

package cached_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachememory "github.com/marmos91/chunkstore/pkg/cache/memory"
	"github.com/marmos91/chunkstore/pkg/metadata"
	"github.com/marmos91/chunkstore/pkg/metadata/cached"
	"github.com/marmos91/chunkstore/pkg/metadata/memory"
)

// failingCache returns an error from every operation so tests can verify
// cache failures stay advisory.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, assert.AnError
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error { return assert.AnError }
func (failingCache) Delete(context.Context, string) error                     { return assert.AnError }
func (failingCache) Exists(context.Context, string) (bool, error)             { return false, assert.AnError }

func newFile(id string) *metadata.FileDescriptor {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &metadata.FileDescriptor{
		ID:        id,
		Name:      "report.txt",
		FullPath:  "/docs/report.txt",
		Type:      metadata.FileTypeFile,
		Status:    metadata.FileStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAddPopulatesCache(t *testing.T) {
	ctx := context.Background()
	c := cachememory.New()
	repo := cached.NewFileRepository(memory.NewFileRepository(), c, 0, nil)

	require.NoError(t, repo.Add(ctx, newFile("f1"), "cid"))

	hit, err := c.Exists(ctx, "file:f1")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestGetServedFromCache(t *testing.T) {
	ctx := context.Background()
	c := cachememory.New()
	inner := memory.NewFileRepository()
	repo := cached.NewFileRepository(inner, c, 0, nil)

	require.NoError(t, repo.Add(ctx, newFile("f1"), "cid"))

	// Remove from the backing repository: a cache hit must still serve it.
	_, err := inner.Delete(ctx, "f1", "cid")
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)
}

func TestGetMissFallsBackAndRepopulates(t *testing.T) {
	ctx := context.Background()
	c := cachememory.New()
	inner := memory.NewFileRepository()
	repo := cached.NewFileRepository(inner, c, 0, nil)

	require.NoError(t, inner.Add(ctx, newFile("f1"), "cid"))

	got, err := repo.GetByID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)

	hit, err := c.Exists(ctx, "file:f1")
	require.NoError(t, err)
	assert.True(t, hit, "descriptor not repopulated after miss")
}

func TestDeleteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	c := cachememory.New()
	repo := cached.NewFileRepository(memory.NewFileRepository(), c, 0, nil)

	require.NoError(t, repo.Add(ctx, newFile("f1"), "cid"))

	deleted, err := repo.Delete(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.True(t, deleted)

	hit, err := c.Exists(ctx, "file:f1")
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = repo.GetByID(ctx, "f1", "cid")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestCacheFailuresAreAdvisory(t *testing.T) {
	ctx := context.Background()
	repo := cached.NewFileRepository(memory.NewFileRepository(), failingCache{}, 0, nil)

	require.NoError(t, repo.Add(ctx, newFile("f1"), "cid"))

	got, err := repo.GetByID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)

	deleted, err := repo.Delete(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestChunkRepositoryWriteThrough(t *testing.T) {
	ctx := context.Background()
	c := cachememory.New()
	repo := cached.NewChunkRepository(memory.NewChunkRepository(), c, 0, nil)

	chunk := &metadata.ChunkDescriptor{
		ID:             metadata.ChunkID("f1", 0),
		FileID:         "f1",
		SequenceNumber: 0,
		Size:           10,
		Status:         metadata.ChunkStatusStored,
	}
	require.NoError(t, repo.Add(ctx, chunk, "cid"))

	hit, err := c.Exists(ctx, "chunk:f1_0")
	require.NoError(t, err)
	assert.True(t, hit)

	n, err := repo.DeleteChunksByFileID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	hit, err = c.Exists(ctx, "chunk:f1_0")
	require.NoError(t, err)
	assert.False(t, hit, "bulk delete left stale chunk entry")
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

func newFile(id, fullPath string, tags ...string) *metadata.FileDescriptor {
	size := int64(10)
	return &metadata.FileDescriptor{
		ID:        id,
		Name:      fullPath,
		FullPath:  fullPath,
		Type:      metadata.FileTypeFile,
		Size:      &size,
		Status:    metadata.FileStatusPending,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}
}

func TestFileRepositoryRoundtrip(t *testing.T) {
	ctx := context.Background()
	repo := NewFileRepository()

	f := newFile("f1", "/data/a.txt", "blue")
	require.NoError(t, repo.Add(ctx, f, "cid"))

	got, err := repo.GetByID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, f, got)

	// Mutating the returned descriptor must not affect the stored one.
	got.Name = "mutated"
	again, err := repo.GetByID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, "/data/a.txt", again.Name)
}

func TestFileRepositoryGetByIDMissing(t *testing.T) {
	repo := NewFileRepository()
	_, err := repo.GetByID(context.Background(), "nope", "cid")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestFileRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewFileRepository()

	f := newFile("f1", "/a")
	require.NoError(t, repo.Add(ctx, f, "cid"))

	f.Status = metadata.FileStatusCompleted
	matched, err := repo.Update(ctx, f, "cid")
	require.NoError(t, err)
	assert.True(t, matched)

	got, err := repo.GetByID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, metadata.FileStatusCompleted, got.Status)

	matched, err = repo.Update(ctx, newFile("ghost", "/g"), "cid")
	require.NoError(t, err)
	assert.False(t, matched, "update of missing descriptor must not match")
}

func TestFileRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewFileRepository()
	require.NoError(t, repo.Add(ctx, newFile("f1", "/a"), "cid"))

	removed, err := repo.Delete(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFileRepositoryQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewFileRepository()

	dir := newFile("d1", "/data")
	dir.Type = metadata.FileTypeDirectory
	dir.Size = nil
	require.NoError(t, repo.Add(ctx, dir, "cid"))

	a := newFile("f1", "/data/a.txt", "blue", "small")
	a.ParentID = "d1"
	b := newFile("f2", "/data/b.txt", "blue")
	b.ParentID = "d1"
	b.IsIndexed = true
	c := newFile("f3", "/other/c.txt", "red")
	require.NoError(t, repo.Add(ctx, a, "cid"))
	require.NoError(t, repo.Add(ctx, b, "cid"))
	require.NoError(t, repo.Add(ctx, c, "cid"))

	byPath, err := repo.GetByFullPath(ctx, "/data/a.txt", "cid")
	require.NoError(t, err)
	assert.Equal(t, "f1", byPath.ID)

	children, err := repo.GetChildren(ctx, "d1", "cid")
	require.NoError(t, err)
	assert.Len(t, children, 2)

	underData, err := repo.GetByParentPath(ctx, "/data", "cid")
	require.NoError(t, err)
	assert.Len(t, underData, 3) // includes the directory itself

	dirs, err := repo.GetByType(ctx, metadata.FileTypeDirectory, "cid")
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "d1", dirs[0].ID)

	nonIndexed, err := repo.GetNonIndexed(ctx, "cid")
	require.NoError(t, err)
	assert.Len(t, nonIndexed, 3)

	// ALL tags must match.
	tagged, err := repo.GetByTags(ctx, []string{"blue", "small"}, "cid")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "f1", tagged[0].ID)

	blue, err := repo.GetByTags(ctx, []string{"blue"}, "cid")
	require.NoError(t, err)
	assert.Len(t, blue, 2)
}

func TestChunkRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkRepository()

	// Insert out of order; retrieval must be sorted by sequence.
	for _, seq := range []int{2, 0, 1} {
		c := &metadata.ChunkDescriptor{
			ID:             metadata.ChunkID("f1", seq),
			FileID:         "f1",
			SequenceNumber: seq,
			Status:         metadata.ChunkStatusStored,
		}
		require.NoError(t, repo.Add(ctx, c, "cid"))
	}
	require.NoError(t, repo.Add(ctx, &metadata.ChunkDescriptor{
		ID: "f2_0", FileID: "f2", SequenceNumber: 0,
	}, "cid"))

	chunks, err := repo.GetChunksByFileID(ctx, "f1", "cid")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceNumber)
	}

	removed, err := repo.DeleteChunksByFileID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	remaining, err := repo.GetAll(ctx, "cid")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "f2", remaining[0].FileID)
}

func TestChunkRepositoryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewChunkRepository()
	err := repo.Add(ctx, &metadata.ChunkDescriptor{ID: "x_0"}, "cid")
	assert.ErrorIs(t, err, context.Canceled)
}

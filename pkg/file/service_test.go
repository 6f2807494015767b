package file_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/events"
	"github.com/marmos91/chunkstore/pkg/file"
	"github.com/marmos91/chunkstore/pkg/metadata"
	metamemory "github.com/marmos91/chunkstore/pkg/metadata/memory"
	"github.com/marmos91/chunkstore/pkg/storage"
	storememory "github.com/marmos91/chunkstore/pkg/storage/memory"
)

type fixture struct {
	service  *file.Service
	files    metadata.FileRepository
	chunks   metadata.ChunkRepository
	provider *storememory.Provider
	bus      *events.Bus
}

func newFixture(t *testing.T, cfg file.Config) *fixture {
	t.Helper()

	provider := storememory.New("mem-a")
	registry := storage.NewRegistry()
	require.NoError(t, registry.Register(provider))

	files := metamemory.NewFileRepository()
	chunks := metamemory.NewChunkRepository()
	bus := events.NewBus()
	lifecycle := events.NewChunkLifecycleHandler(files, chunks, bus)

	chunkCfg := chunk.DefaultConfig()
	chunkCfg.Sizing = chunk.SizePolicy{Min: 16, Default: 64, Max: 256}
	manager := chunk.NewManager(chunkCfg, registry, storage.NewRoundRobin(), chunks, bus, nil)

	return &fixture{
		service:  file.NewService(cfg, files, manager, lifecycle, bus),
		files:    files,
		chunks:   chunks,
		provider: provider,
		bus:      bus,
	}
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestUploadDownloadRoundtrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	data := randomBytes(t, 500)
	descriptor, err := f.service.Upload(ctx, bytes.NewReader(data), "docs/report.pdf", "cid")
	require.NoError(t, err)

	assert.Equal(t, metadata.FileStatusCompleted, descriptor.Status)
	assert.Equal(t, "report.pdf", descriptor.Name)
	assert.Equal(t, "/docs/report.pdf", descriptor.FullPath)
	assert.Equal(t, ".pdf", descriptor.Extension)
	require.NotNil(t, descriptor.Size)
	assert.Equal(t, int64(500), *descriptor.Size)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), descriptor.Checksum)
	assert.Equal(t, 8, descriptor.ChunkCount) // ceil(500/64)

	var out bytes.Buffer
	require.NoError(t, f.service.Download(ctx, descriptor.ID, &out, "cid"))
	assert.Equal(t, data, out.Bytes())
}

func TestUploadEmitsFileProcessed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	var processed []events.FileProcessedEvent
	f.bus.Subscribe(events.KindFileProcessed, "capture", func(ctx context.Context, e events.Event) error {
		processed = append(processed, e.(events.FileProcessedEvent))
		return nil
	})

	descriptor, err := f.service.Upload(ctx, bytes.NewReader(randomBytes(t, 100)), "a.bin", "cid")
	require.NoError(t, err)

	require.Len(t, processed, 1)
	assert.Equal(t, descriptor.ID, processed[0].FileIDValue)
	assert.Equal(t, descriptor.ChunkCount, processed[0].ChunkCount)
}

func TestUploadEmptyFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	descriptor, err := f.service.Upload(ctx, bytes.NewReader(nil), "empty.bin", "cid")
	require.NoError(t, err)

	assert.Equal(t, metadata.FileStatusCompleted, descriptor.Status)
	assert.Equal(t, 1, descriptor.ChunkCount)
	require.NotNil(t, descriptor.Size)
	assert.Zero(t, *descriptor.Size)

	var out bytes.Buffer
	require.NoError(t, f.service.Download(ctx, descriptor.ID, &out, "cid"))
	assert.Zero(t, out.Len())
}

func TestUploadFailureMarksFileFailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	src := &failingReader{data: randomBytes(t, 100)}
	_, err := f.service.Upload(ctx, src, "broken.bin", "cid")
	require.Error(t, err)

	all, err := f.files.GetAll(ctx, "cid")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, metadata.FileStatusFailed, all[0].Status)
}

type failingReader struct {
	data []byte
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, assert.AnError
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	descriptor, err := f.service.Upload(ctx, bytes.NewReader(randomBytes(t, 100)), "a.bin", "cid")
	require.NoError(t, err)

	ok, err := f.service.Delete(ctx, descriptor.ID, "cid")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, f.provider.Len(), "blobs must be gone")

	// Second delete of the same file still succeeds.
	ok, err = f.service.Delete(ctx, descriptor.ID, "cid")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStrictDeleteRejectsMissingFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{StrictDelete: true})

	_, err := f.service.Delete(ctx, "ghost", "cid")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestDownloadDetectsWholeFileMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	descriptor, err := f.service.Upload(ctx, bytes.NewReader(randomBytes(t, 100)), "a.bin", "cid")
	require.NoError(t, err)

	// Tamper with the recorded whole-file checksum: chunk checks still pass
	// but the end-to-end comparison must fail.
	descriptor.Checksum = hex.EncodeToString(bytes.Repeat([]byte{0xAB}, 32))
	_, err = f.files.Update(ctx, descriptor, "cid")
	require.NoError(t, err)

	err = f.service.Download(ctx, descriptor.ID, &bytes.Buffer{}, "cid")
	var integrityErr *chunk.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
}

func TestVerifyCompletedFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	descriptor, err := f.service.Upload(ctx, bytes.NewReader(randomBytes(t, 300)), "a.bin", "cid")
	require.NoError(t, err)

	report, err := f.service.Verify(ctx, descriptor.ID, chunk.VerifyDeep, "cid")
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, descriptor.ChunkCount, report.ChunksChecked)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, file.Config{})

	for _, name := range []string{"a.bin", "b.bin"} {
		_, err := f.service.Upload(ctx, bytes.NewReader(randomBytes(t, 50)), name, "cid")
		require.NoError(t, err)
	}

	all, err := f.service.List(ctx, "cid")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

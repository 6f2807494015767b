package chunk_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/events"
	"github.com/marmos91/chunkstore/pkg/metadata"
	metamemory "github.com/marmos91/chunkstore/pkg/metadata/memory"
	"github.com/marmos91/chunkstore/pkg/storage"
	storememory "github.com/marmos91/chunkstore/pkg/storage/memory"
)

type fixture struct {
	manager  *chunk.Manager
	chunks   metadata.ChunkRepository
	provider *storememory.Provider
	bus      *events.Bus
}

func newFixture(t *testing.T, cfg chunk.Config) *fixture {
	t.Helper()

	provider := storememory.New("mem-a")
	registry := storage.NewRegistry()
	require.NoError(t, registry.Register(provider))

	chunks := metamemory.NewChunkRepository()
	bus := events.NewBus()
	return &fixture{
		manager:  chunk.NewManager(cfg, registry, storage.NewRoundRobin(), chunks, bus, nil),
		chunks:   chunks,
		provider: provider,
		bus:      bus,
	}
}

func smallConfig() chunk.Config {
	cfg := chunk.DefaultConfig()
	cfg.Sizing = chunk.SizePolicy{Min: 16, Default: 64, Max: 256}
	return cfg
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestStoreAndAssembleRoundtrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	data := randomBytes(t, 1000) // 64-byte chunks: 15 full + 1 short
	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)
	require.Len(t, descriptors, 16)

	for i, d := range descriptors {
		assert.Equal(t, i, d.SequenceNumber)
		assert.Equal(t, metadata.ChunkStatusStored, d.Status)
		assert.Equal(t, "mem-a", d.StorageProviderID)
	}
	assert.Equal(t, int64(64), descriptors[0].Size)
	assert.Equal(t, int64(1000-15*64), descriptors[15].Size)

	var out bytes.Buffer
	require.NoError(t, f.manager.Assemble(ctx, "f1", &out, "cid"))
	assert.Equal(t, data, out.Bytes())
}

func TestStoreEmitsChunkStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	var seen int
	f.bus.Subscribe(events.KindChunkStored, "count", func(ctx context.Context, e events.Event) error {
		seen++
		return nil
	})

	_, err := f.manager.Store(ctx, "f1", bytes.NewReader(randomBytes(t, 200)), 200, "cid")
	require.NoError(t, err)
	assert.Equal(t, 4, seen) // ceil(200/64)
}

func TestStoreEmptyStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(nil), 0, "cid")
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, int64(0), descriptors[0].Size)
	assert.Equal(t, metadata.ChunkStatusStored, descriptors[0].Status)

	var out bytes.Buffer
	require.NoError(t, f.manager.Assemble(ctx, "f1", &out, "cid"))
	assert.Zero(t, out.Len())
}

func TestCompressionSoundness(t *testing.T) {
	ctx := context.Background()
	cfg := smallConfig()
	cfg.CompressionEnabled = true
	// Chunks large enough for gzip to beat its header overhead.
	cfg.Sizing = chunk.SizePolicy{Min: 1024, Default: 4096, Max: 16384}
	f := newFixture(t, cfg)

	// Highly compressible payload: two 4 KiB chunks.
	data := bytes.Repeat([]byte("abcdefgh"), 1024)
	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)

	var compressed int
	for _, d := range descriptors {
		if d.IsCompressed {
			compressed++
			assert.Less(t, d.CompressedSize, d.Size)
		} else {
			assert.Equal(t, d.Size, d.CompressedSize)
		}
	}
	assert.Positive(t, compressed, "repetitive data should compress")

	var out bytes.Buffer
	require.NoError(t, f.manager.Assemble(ctx, "f1", &out, "cid"))
	assert.Equal(t, data, out.Bytes())
}

func TestIncompressibleDataStoredPlain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(randomBytes(t, 64)), 64, "cid")
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.False(t, descriptors[0].IsCompressed, "random bytes must not be marked compressed")
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestStoreFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	src := &failingReader{data: randomBytes(t, 200), err: errors.New("disk on fire")}
	_, err := f.manager.Store(ctx, "f1", src, 1000, "cid")
	require.Error(t, err)

	remaining, err := f.chunks.GetChunksByFileID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Empty(t, remaining, "descriptors must be rolled back")
	assert.Zero(t, f.provider.Len(), "blobs must be rolled back")
}

func TestStoreFailureKeepsGarbageWhenRollbackDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := smallConfig()
	cfg.RollbackOnFailure = false
	f := newFixture(t, cfg)

	src := &failingReader{data: randomBytes(t, 200), err: errors.New("disk on fire")}
	_, err := f.manager.Store(ctx, "f1", src, 1000, "cid")
	require.Error(t, err)

	remaining, err := f.chunks.GetChunksByFileID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.NotEmpty(t, remaining)
}

func TestAssembleDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	cfg := smallConfig()
	cfg.CompressionEnabled = false
	f := newFixture(t, cfg)

	data := randomBytes(t, 200)
	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)

	// Flip one byte in the second chunk's stored blob.
	target := descriptors[1]
	blob := f.provider.Blob(target.StoragePath)
	require.NotNil(t, blob)
	blob[0] ^= 0xFF
	f.provider.SetBlob(target.StoragePath, blob)

	err = f.manager.Assemble(ctx, "f1", io.Discard, "cid")
	var integrityErr *chunk.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, 1, integrityErr.Sequence)
}

func TestAssembleDetectsMissingSequence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	data := randomBytes(t, 200)
	_, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)

	deleted, err := f.chunks.Delete(ctx, metadata.ChunkID("f1", 1), "cid")
	require.NoError(t, err)
	require.True(t, deleted)

	err = f.manager.Assemble(ctx, "f1", io.Discard, "cid")
	var integrityErr *chunk.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
}

func TestVerifyShallowAndDeep(t *testing.T) {
	ctx := context.Background()
	cfg := smallConfig()
	cfg.CompressionEnabled = false
	f := newFixture(t, cfg)

	data := randomBytes(t, 200)
	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)
	expected := len(descriptors)

	report, err := f.manager.Verify(ctx, "f1", expected, chunk.VerifyShallow, "cid")
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, expected, report.ChunksChecked)

	// Corrupt one blob: shallow stays green, deep catches it.
	target := descriptors[2]
	blob := f.provider.Blob(target.StoragePath)
	require.NotNil(t, blob)
	blob[0] ^= 0xFF
	f.provider.SetBlob(target.StoragePath, blob)

	report, err = f.manager.Verify(ctx, "f1", expected, chunk.VerifyShallow, "cid")
	require.NoError(t, err)
	assert.True(t, report.OK)

	report, err = f.manager.Verify(ctx, "f1", expected, chunk.VerifyDeep, "cid")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, []int{2}, report.Mismatched)
}

func TestVerifyReportsMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	data := randomBytes(t, 200)
	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)

	_, err = f.chunks.Delete(ctx, metadata.ChunkID("f1", 0), "cid")
	require.NoError(t, err)

	report, err := f.manager.Verify(ctx, "f1", len(descriptors), chunk.VerifyShallow, "cid")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, []int{0}, report.Missing)
}

func TestRemoveDeletesBlobsAndDescriptors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, smallConfig())

	data := randomBytes(t, 200)
	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)

	n, err := f.manager.Remove(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Equal(t, int64(len(descriptors)), n)
	assert.Zero(t, f.provider.Len())

	remaining, err := f.chunks.GetChunksByFileID(ctx, "f1", "cid")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestChunkChecksumsMatchPlaintext(t *testing.T) {
	ctx := context.Background()
	cfg := smallConfig()
	cfg.CompressionEnabled = false
	f := newFixture(t, cfg)

	data := randomBytes(t, 150)
	descriptors, err := f.manager.Store(ctx, "f1", bytes.NewReader(data), int64(len(data)), "cid")
	require.NoError(t, err)

	offset := 0
	for _, d := range descriptors {
		plaintext := data[offset : offset+int(d.Size)]
		sum := sha256.Sum256(plaintext)
		assert.Equal(t, hex.EncodeToString(sum[:]), d.Checksum, "chunk %d", d.SequenceNumber)
		offset += int(d.Size)
	}
	assert.Equal(t, len(data), offset)
}

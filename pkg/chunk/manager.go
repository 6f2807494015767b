// Package chunk implements the chunk pipeline: splitting a byte stream
// into sized chunks, compressing and checksumming them, placing the blobs
// across storage providers, and reassembling or verifying them later.
package chunk

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/bufpool"
	"github.com/marmos91/chunkstore/pkg/events"
	"github.com/marmos91/chunkstore/pkg/metadata"
	"github.com/marmos91/chunkstore/pkg/storage"
)

// Config holds the chunk pipeline settings.
type Config struct {
	// Sizing selects the target chunk size from the plaintext size.
	Sizing SizePolicy

	// CompressionEnabled gzips chunk blobs when it actually shrinks them.
	CompressionEnabled bool

	// CompressionLevel is the gzip level, 0-9.
	CompressionLevel int

	// Parallelism bounds the number of chunks processed concurrently after
	// the serial read.
	Parallelism int

	// RollbackOnFailure deletes already-stored chunks when an upload
	// aborts. When false, orphaned blobs are left for an external sweep.
	RollbackOnFailure bool
}

// DefaultConfig returns the production defaults: 1 MiB default chunks
// between 256 KiB and 16 MiB, compression on at level 6, four workers,
// rollback enabled.
func DefaultConfig() Config {
	return Config{
		Sizing: SizePolicy{
			Min:     256 * 1024,
			Default: 1024 * 1024,
			Max:     16 * 1024 * 1024,
		},
		CompressionEnabled: true,
		CompressionLevel:   6,
		Parallelism:        4,
		RollbackOnFailure:  true,
	}
}

// Manager runs the chunk pipeline against a provider registry and the
// chunk metadata repository.
type Manager struct {
	cfg      Config
	registry *storage.Registry
	strategy storage.Strategy
	chunks   metadata.ChunkRepository
	bus      *events.Bus
	metrics  Metrics
}

// NewManager creates a chunk manager. The bus and metrics may be nil when
// no event consumers or collectors are wired.
func NewManager(cfg Config, registry *storage.Registry, strategy storage.Strategy, chunks metadata.ChunkRepository, bus *events.Bus, metrics Metrics) *Manager {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultConfig().Parallelism
	}
	return &Manager{
		cfg:      cfg,
		registry: registry,
		strategy: strategy,
		chunks:   chunks,
		bus:      bus,
		metrics:  metrics,
	}
}

// Store splits the stream into chunks and stores them. sizeHint is the
// total plaintext size when known (seekable sources); pass a value <= 0
// for unknown, which falls back to the default chunk size. The returned
// descriptors are in sequence order, all with status Stored.
func (m *Manager) Store(ctx context.Context, fileID string, r io.Reader, sizeHint int64, correlationID string) ([]*metadata.ChunkDescriptor, error) {
	chunkSize := m.cfg.Sizing.Default
	if sizeHint > 0 {
		chunkSize = m.cfg.Sizing.ChunkSizeFor(sizeHint)
	}

	logger.DebugCtx(ctx, "splitting stream",
		logger.KeyFileID, fileID,
		"chunk_size", chunkSize)

	var (
		mu       sync.Mutex
		results  []*metadata.ChunkDescriptor
		firstErr error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, m.cfg.Parallelism)

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	// Reads are serial: they consume the stream, and the sequence number is
	// fixed before any concurrent work begins.
	for seq := 0; ; seq++ {
		if err := ctx.Err(); err != nil {
			setErr(err)
			break
		}
		if failed() {
			break
		}

		buf := bufpool.Get(int(chunkSize))
		n, err := io.ReadFull(r, buf[:chunkSize])
		if n == 0 {
			bufpool.Put(buf)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				setErr(fmt.Errorf("failed to read stream: %w", err))
				break
			}
			// Zero-byte files still get one empty chunk so the manifest is
			// never empty.
			if seq == 0 {
				m.processChunk(ctx, fileID, 0, nil, nil, &mu, &results, setErr, correlationID)
			}
			break
		}
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			bufpool.Put(buf)
			setErr(fmt.Errorf("failed to read stream: %w", err))
			break
		}

		plaintext := buf[:n]
		short := err != nil // EOF reached inside this chunk

		wg.Add(1)
		sem <- struct{}{}
		go func(seq int, buf, plaintext []byte) {
			defer wg.Done()
			defer func() { <-sem }()
			m.processChunk(ctx, fileID, seq, buf, plaintext, &mu, &results, setErr, correlationID)
		}(seq, buf, plaintext)

		if short {
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		if m.cfg.RollbackOnFailure {
			m.rollback(ctx, fileID, correlationID)
		}
		return nil, firstErr
	}

	mu.Lock()
	defer mu.Unlock()
	ordered := make([]*metadata.ChunkDescriptor, len(results))
	for _, d := range results {
		ordered[d.SequenceNumber] = d
	}
	return ordered, nil
}

// processChunk runs steps 3-8 of the upload pipeline for one chunk. buf is
// returned to the pool; it may be nil for the empty-file chunk.
func (m *Manager) processChunk(
	ctx context.Context,
	fileID string,
	seq int,
	buf, plaintext []byte,
	mu *sync.Mutex,
	results *[]*metadata.ChunkDescriptor,
	setErr func(error),
	correlationID string,
) {
	if buf != nil {
		defer bufpool.Put(buf)
	}

	sum := sha256.Sum256(plaintext)
	checksum := hex.EncodeToString(sum[:])

	blob := plaintext
	compressed := false
	if m.cfg.CompressionEnabled && len(plaintext) > 0 {
		c, err := compress(plaintext, m.cfg.CompressionLevel)
		if err != nil {
			setErr(err)
			return
		}
		if len(c) < len(plaintext) {
			blob = c
			compressed = true
		}
	}

	provider, err := m.strategy.Select(m.registry.Providers())
	if err != nil {
		setErr(fmt.Errorf("failed to select provider: %w", err))
		return
	}

	key := metadata.ChunkID(fileID, seq)
	writeStart := time.Now()
	storagePath, err := provider.WriteChunk(ctx, key, bytes.NewReader(blob), correlationID)
	if m.metrics != nil {
		m.metrics.ObserveChunkStored(provider.ID(), int64(len(plaintext)), int64(len(blob)), time.Since(writeStart), err)
	}
	if err != nil {
		setErr(err)
		return
	}

	now := time.Now().UTC()
	descriptor := &metadata.ChunkDescriptor{
		ID:                key,
		FileID:            fileID,
		SequenceNumber:    seq,
		Size:              int64(len(plaintext)),
		CompressedSize:    int64(len(blob)),
		Checksum:          checksum,
		IsCompressed:      compressed,
		StorageProviderID: provider.ID(),
		StoragePath:       storagePath,
		Status:            metadata.ChunkStatusStored,
		CreatedAt:         now,
		UpdatedAt:         now,
		StorageTimestamp:  now,
		CorrelationID:     correlationID,
	}

	if err := m.chunks.Add(ctx, descriptor, correlationID); err != nil {
		setErr(fmt.Errorf("failed to persist chunk %s: %w", key, err))
		return
	}

	mu.Lock()
	*results = append(*results, descriptor)
	mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(ctx, events.ChunkStoredEvent{
			Base:  events.NewBase(correlationID),
			Chunk: descriptor,
		})
	}
}

// rollback best-effort deletes everything stored for a failed upload.
// Failures here only log: the file descriptor moves to Failed regardless.
func (m *Manager) rollback(ctx context.Context, fileID string, correlationID string) {
	// A canceled context must not block cleanup.
	ctx = context.WithoutCancel(ctx)

	chunks, err := m.chunks.GetChunksByFileID(ctx, fileID, correlationID)
	if err != nil {
		logger.WarnCtx(ctx, "rollback could not enumerate chunks",
			logger.KeyFileID, fileID, logger.KeyError, err)
		return
	}

	for _, c := range chunks {
		provider, err := m.registry.Resolve(c.StorageProviderID)
		if err != nil {
			logger.WarnCtx(ctx, "rollback skipped unknown provider",
				logger.KeyChunkID, c.ID, logger.KeyProvider, c.StorageProviderID)
			continue
		}
		if _, err := provider.DeleteChunk(ctx, c.ID, c.StoragePath, correlationID); err != nil {
			logger.WarnCtx(ctx, "rollback delete failed",
				logger.KeyChunkID, c.ID, logger.KeyError, err)
		}
	}

	if n, err := m.chunks.DeleteChunksByFileID(ctx, fileID, correlationID); err != nil {
		logger.WarnCtx(ctx, "rollback could not delete chunk descriptors",
			logger.KeyFileID, fileID, logger.KeyError, err)
	} else {
		if m.metrics != nil {
			m.metrics.ObserveRollback(n)
		}
		logger.InfoCtx(ctx, "upload rolled back",
			logger.KeyFileID, fileID, "chunks_removed", n)
	}
}

// Assemble streams the file's plaintext to w in sequence order, verifying
// each chunk's checksum on the way.
func (m *Manager) Assemble(ctx context.Context, fileID string, w io.Writer, correlationID string) error {
	chunks, err := m.chunks.GetChunksByFileID(ctx, fileID, correlationID)
	if err != nil {
		return fmt.Errorf("failed to load chunks for file %s: %w", fileID, err)
	}
	if err := checkContiguous(fileID, chunks); err != nil {
		return err
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		plaintext, err := m.readChunk(ctx, c, correlationID)
		if err != nil {
			return err
		}
		if _, err := w.Write(plaintext); err != nil {
			return fmt.Errorf("failed to write chunk %s to sink: %w", c.ID, err)
		}
	}
	return nil
}

// readChunk fetches, decompresses and verifies one chunk's plaintext.
func (m *Manager) readChunk(ctx context.Context, c *metadata.ChunkDescriptor, correlationID string) ([]byte, error) {
	provider, err := m.registry.Resolve(c.StorageProviderID)
	if err != nil {
		return nil, fmt.Errorf("chunk %s references unknown provider %s: %w", c.ID, c.StorageProviderID, err)
	}

	readStart := time.Now()
	rc, err := provider.ReadChunk(ctx, c.ID, c.StoragePath, correlationID)
	if err != nil {
		if m.metrics != nil {
			m.metrics.ObserveChunkRead(provider.ID(), c.Size, time.Since(readStart), err)
		}
		return nil, err
	}
	defer rc.Close()

	blob, err := io.ReadAll(rc)
	if m.metrics != nil {
		m.metrics.ObserveChunkRead(provider.ID(), c.Size, time.Since(readStart), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", c.ID, err)
	}

	plaintext := blob
	if c.IsCompressed {
		plaintext, err = decompress(blob)
		if err != nil {
			return nil, &IntegrityError{FileID: c.FileID, Sequence: c.SequenceNumber, Reason: err.Error()}
		}
	}

	if int64(len(plaintext)) != c.Size {
		return nil, &IntegrityError{
			FileID:   c.FileID,
			Sequence: c.SequenceNumber,
			Reason:   fmt.Sprintf("size mismatch: got %d, want %d", len(plaintext), c.Size),
		}
	}
	sum := sha256.Sum256(plaintext)
	if hex.EncodeToString(sum[:]) != c.Checksum {
		return nil, &IntegrityError{FileID: c.FileID, Sequence: c.SequenceNumber, Reason: "checksum mismatch"}
	}
	return plaintext, nil
}

// Remove deletes all chunk blobs and descriptors for a file. Provider
// deletes are idempotent; individual failures are logged and do not stop
// the sweep. Returns the number of descriptors removed.
func (m *Manager) Remove(ctx context.Context, fileID string, correlationID string) (int64, error) {
	chunks, err := m.chunks.GetChunksByFileID(ctx, fileID, correlationID)
	if err != nil {
		return 0, fmt.Errorf("failed to load chunks for file %s: %w", fileID, err)
	}

	for _, c := range chunks {
		provider, err := m.registry.Resolve(c.StorageProviderID)
		if err != nil {
			logger.WarnCtx(ctx, "delete skipped unknown provider",
				logger.KeyChunkID, c.ID, logger.KeyProvider, c.StorageProviderID)
			continue
		}
		if _, err := provider.DeleteChunk(ctx, c.ID, c.StoragePath, correlationID); err != nil {
			logger.WarnCtx(ctx, "failed to delete chunk blob",
				logger.KeyChunkID, c.ID, logger.KeyError, err)
		}
	}

	return m.chunks.DeleteChunksByFileID(ctx, fileID, correlationID)
}

// checkContiguous requires the manifest to be exactly {0..n-1}, sorted,
// with no duplicates. chunks arrive sorted by sequence from the repository.
func checkContiguous(fileID string, chunks []*metadata.ChunkDescriptor) error {
	if len(chunks) == 0 {
		return &IntegrityError{FileID: fileID, Sequence: -1, Reason: "no chunks found"}
	}
	for i, c := range chunks {
		if c.SequenceNumber == i {
			continue
		}
		if i > 0 && c.SequenceNumber == chunks[i-1].SequenceNumber {
			return &IntegrityError{FileID: fileID, Sequence: c.SequenceNumber, Reason: "duplicate sequence number"}
		}
		return &IntegrityError{FileID: fileID, Sequence: i, Reason: "missing sequence number"}
	}
	return nil
}

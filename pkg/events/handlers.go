package events

import (
	"context"
	"fmt"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/metadata"
)

// ChunkLifecycleHandler observes ChunkStored events and completes files:
// once every expected chunk of a file is Stored, the file descriptor moves
// to Completed and a FileProcessed event is published.
type ChunkLifecycleHandler struct {
	files  metadata.FileRepository
	chunks metadata.ChunkRepository
	bus    *Bus
}

// NewChunkLifecycleHandler creates the handler and subscribes it on the bus.
func NewChunkLifecycleHandler(files metadata.FileRepository, chunks metadata.ChunkRepository, bus *Bus) *ChunkLifecycleHandler {
	h := &ChunkLifecycleHandler{files: files, chunks: chunks, bus: bus}
	bus.Subscribe(KindChunkStored, "chunk-lifecycle", h.handleChunkStored)
	return h
}

func (h *ChunkLifecycleHandler) handleChunkStored(ctx context.Context, event Event) error {
	e, ok := event.(ChunkStoredEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	fileID := e.FileID()
	if fileID == "" {
		return fmt.Errorf("chunk %s carries no file ID", e.Chunk.ID)
	}

	_, err := h.CheckCompletion(ctx, fileID, e.CorrelationID())
	return err
}

// CheckCompletion inspects a file's chunk manifest and promotes the file to
// Completed when all expected chunks are Stored. It is safe to call
// repeatedly; the transition happens once. The File Service calls it after
// finalizing the chunk count, closing the race with chunks that were stored
// before the count was known.
func (h *ChunkLifecycleHandler) CheckCompletion(ctx context.Context, fileID string, correlationID string) (bool, error) {
	file, err := h.files.GetByID(ctx, fileID, correlationID)
	if err != nil {
		return false, fmt.Errorf("failed to load file %s: %w", fileID, err)
	}

	if file.Status == metadata.FileStatusCompleted {
		return true, nil
	}
	// Chunk count is written when the upload finishes splitting; until then
	// completion cannot be decided.
	if file.ChunkCount == 0 {
		return false, nil
	}

	chunks, err := h.chunks.GetChunksByFileID(ctx, fileID, correlationID)
	if err != nil {
		return false, fmt.Errorf("failed to load chunks for file %s: %w", fileID, err)
	}

	if !manifestComplete(chunks, file.ChunkCount) {
		return false, nil
	}

	file.Status = metadata.FileStatusCompleted
	matched, err := h.files.Update(ctx, file, correlationID)
	if err != nil {
		return false, fmt.Errorf("failed to complete file %s: %w", fileID, err)
	}
	if !matched {
		return false, fmt.Errorf("file %s vanished during completion", fileID)
	}

	logger.InfoCtx(ctx, "file processing completed",
		logger.KeyFileID, fileID,
		"chunk_count", file.ChunkCount)

	h.bus.Publish(ctx, FileProcessedEvent{
		Base:        NewBase(correlationID),
		FileIDValue: fileID,
		ChunkCount:  file.ChunkCount,
		Checksum:    file.Checksum,
	})
	return true, nil
}

// manifestComplete reports whether chunks form the full contiguous sequence
// {0..expected-1} with every chunk Stored. The input is sorted by sequence.
func manifestComplete(chunks []*metadata.ChunkDescriptor, expected int) bool {
	if len(chunks) != expected {
		return false
	}
	for i, chunk := range chunks {
		if chunk.SequenceNumber != i || chunk.Status != metadata.ChunkStatusStored {
			return false
		}
	}
	return true
}

// NewChunkStoredLogger subscribes a handler that records each stored chunk.
func NewChunkStoredLogger(bus *Bus) {
	bus.Subscribe(KindChunkStored, "chunk-stored-logger", func(ctx context.Context, event Event) error {
		e, ok := event.(ChunkStoredEvent)
		if !ok {
			return fmt.Errorf("unexpected event type %T", event)
		}
		logger.DebugCtx(ctx, "chunk stored",
			logger.KeyChunkID, e.Chunk.ID,
			logger.KeySequence, e.Chunk.SequenceNumber,
			logger.KeyProvider, e.Chunk.StorageProviderID,
			"size", e.Chunk.Size)
		return nil
	})
}

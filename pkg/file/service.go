// Package file implements the file-level orchestration above the chunk
// pipeline: upload, download, delete, verify and listing, plus the file
// lifecycle transitions.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/events"
	"github.com/marmos91/chunkstore/pkg/metadata"
)

// Config holds file service settings.
type Config struct {
	// StrictDelete makes deleting a missing file an error instead of a
	// successful no-op.
	StrictDelete bool
}

// Service orchestrates file operations. It owns file-lifecycle
// transitions; chunk-lifecycle transitions belong to the chunk manager.
type Service struct {
	cfg       Config
	files     metadata.FileRepository
	manager   *chunk.Manager
	lifecycle *events.ChunkLifecycleHandler
	bus       *events.Bus
}

// NewService creates a file service.
func NewService(cfg Config, files metadata.FileRepository, manager *chunk.Manager, lifecycle *events.ChunkLifecycleHandler, bus *events.Bus) *Service {
	return &Service{
		cfg:       cfg,
		files:     files,
		manager:   manager,
		lifecycle: lifecycle,
		bus:       bus,
	}
}

// Upload stores a new file from the stream and returns its completed
// descriptor. The whole-file checksum is computed by teeing the stream
// through a hasher on its way into the chunk pipeline.
func (s *Service) Upload(ctx context.Context, stream io.Reader, name string, correlationID string) (*metadata.FileDescriptor, error) {
	fileID := uuid.NewString()
	now := time.Now().UTC()

	ext := path.Ext(name)
	descriptor := &metadata.FileDescriptor{
		ID:            fileID,
		Name:          path.Base(name),
		FullPath:      "/" + strings.TrimPrefix(name, "/"),
		Extension:     ext,
		ContentType:   mime.TypeByExtension(ext),
		Type:          metadata.FileTypeFile,
		Status:        metadata.FileStatusPending,
		CreatedAt:     now,
		ModifiedAt:    now,
		UpdatedAt:     now,
		CorrelationID: correlationID,
	}
	if err := s.files.Add(ctx, descriptor, correlationID); err != nil {
		return nil, fmt.Errorf("failed to create file descriptor: %w", err)
	}

	descriptor.Status = metadata.FileStatusProcessing
	if _, err := s.files.Update(ctx, descriptor, correlationID); err != nil {
		return nil, fmt.Errorf("failed to transition file to processing: %w", err)
	}

	sizeHint := seekableSize(stream)
	hasher := sha256.New()
	chunks, err := s.manager.Store(ctx, fileID, io.TeeReader(stream, hasher), sizeHint, correlationID)
	if err != nil {
		s.markFailed(ctx, descriptor, correlationID)
		return nil, err
	}

	var totalSize int64
	for _, c := range chunks {
		totalSize += c.Size
	}

	descriptor.Size = &totalSize
	descriptor.Checksum = hex.EncodeToString(hasher.Sum(nil))
	descriptor.ChunkCount = len(chunks)
	descriptor.UpdatedAt = time.Now().UTC()
	if _, err := s.files.Update(ctx, descriptor, correlationID); err != nil {
		s.markFailed(ctx, descriptor, correlationID)
		return nil, fmt.Errorf("failed to finalize file descriptor: %w", err)
	}

	// Chunk-stored events observed before the chunk count was written could
	// not complete the file; re-check now that the count is known.
	if _, err := s.lifecycle.CheckCompletion(ctx, fileID, correlationID); err != nil {
		return nil, err
	}

	final, err := s.files.GetByID(ctx, fileID, correlationID)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "file uploaded",
		logger.KeyFileID, fileID,
		"name", final.Name,
		"size", totalSize,
		"chunk_count", final.ChunkCount)
	return final, nil
}

// Download streams the file's plaintext to the sink and verifies the
// whole-file checksum end to end.
func (s *Service) Download(ctx context.Context, fileID string, sink io.Writer, correlationID string) error {
	descriptor, err := s.files.GetByID(ctx, fileID, correlationID)
	if err != nil {
		return err
	}

	hasher := sha256.New()
	if err := s.manager.Assemble(ctx, fileID, io.MultiWriter(sink, hasher), correlationID); err != nil {
		return err
	}

	if descriptor.Checksum != "" && hex.EncodeToString(hasher.Sum(nil)) != descriptor.Checksum {
		return &chunk.IntegrityError{FileID: fileID, Sequence: -1, Reason: "whole-file checksum mismatch"}
	}
	return nil
}

// Delete removes the file's blobs, chunk descriptors and file descriptor.
// Deleting a missing file succeeds unless StrictDelete is set.
func (s *Service) Delete(ctx context.Context, fileID string, correlationID string) (bool, error) {
	_, err := s.files.GetByID(ctx, fileID, correlationID)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) && !s.cfg.StrictDelete {
			return true, nil
		}
		return false, err
	}

	if _, err := s.manager.Remove(ctx, fileID, correlationID); err != nil {
		return false, err
	}

	deleted, err := s.files.Delete(ctx, fileID, correlationID)
	if err != nil {
		return false, err
	}

	logger.InfoCtx(ctx, "file deleted", logger.KeyFileID, fileID)
	return deleted || !s.cfg.StrictDelete, nil
}

// Verify checks the file's integrity and returns the chunk-level report.
// Deep mode additionally re-reads the whole file and compares the
// end-to-end checksum.
func (s *Service) Verify(ctx context.Context, fileID string, mode chunk.VerifyMode, correlationID string) (*chunk.VerifyReport, error) {
	descriptor, err := s.files.GetByID(ctx, fileID, correlationID)
	if err != nil {
		return nil, err
	}

	report, err := s.manager.Verify(ctx, fileID, descriptor.ChunkCount, mode, correlationID)
	if err != nil {
		return report, err
	}

	if mode == chunk.VerifyDeep && report.OK && descriptor.Checksum != "" {
		hasher := sha256.New()
		if err := s.manager.Assemble(ctx, fileID, hasher, correlationID); err != nil {
			report.OK = false
			return report, nil
		}
		if hex.EncodeToString(hasher.Sum(nil)) != descriptor.Checksum {
			report.OK = false
		}
	}
	return report, nil
}

// List returns all file descriptors.
func (s *Service) List(ctx context.Context, correlationID string) ([]*metadata.FileDescriptor, error) {
	return s.files.GetAll(ctx, correlationID)
}

func (s *Service) markFailed(ctx context.Context, descriptor *metadata.FileDescriptor, correlationID string) {
	ctx = context.WithoutCancel(ctx)
	descriptor.Status = metadata.FileStatusFailed
	descriptor.UpdatedAt = time.Now().UTC()
	if _, err := s.files.Update(ctx, descriptor, correlationID); err != nil {
		logger.ErrorCtx(ctx, "failed to mark file as failed",
			logger.KeyFileID, descriptor.ID, logger.KeyError, err)
	}
}

// seekableSize returns the remaining byte count of a seekable stream, or
// -1 when the stream cannot be measured.
func seekableSize(r io.Reader) int64 {
	seeker, ok := r.(io.Seeker)
	if !ok {
		return -1
	}

	cur, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return -1
	}
	if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
		return -1
	}
	return end - cur
}

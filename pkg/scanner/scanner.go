// Package scanner walks a directory tree and records its files and
// directories as metadata descriptors, optionally feeding file contents
// through the upload pipeline.
package scanner

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/events"
	"github.com/marmos91/chunkstore/pkg/metadata"
)

// ContentUploader is the upload entry point the scanner hands file
// streams to. Satisfied by the file service.
type ContentUploader interface {
	Upload(ctx context.Context, stream io.Reader, name string, correlationID string) (*metadata.FileDescriptor, error)
}

// Options controls a scan.
type Options struct {
	// Recursive descends into subdirectories.
	Recursive bool

	// ProcessContent uploads each file's bytes through the chunk
	// pipeline. When false only metadata is recorded.
	ProcessContent bool

	// Parallelism bounds the file worker pool. Zero selects
	// min(8, number of CPUs).
	Parallelism int

	// ProgressInterval is the minimum time between progress callbacks.
	// Zero disables intermediate reporting; the final report is always
	// delivered.
	ProgressInterval time.Duration

	// Progress receives scan progress snapshots.
	Progress func(ScanProgress)
}

// ScanError records a single file or directory failure.
type ScanError struct {
	Path string
	Err  error
}

// ScanProgress is the accumulated result of a scan. A file's failure is
// recorded here and does not abort the scan.
type ScanProgress struct {
	DirectoriesScanned int
	FilesDiscovered    int
	FilesProcessed     int
	BytesProcessed     int64
	Errors             []ScanError
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Scanner traverses filesystem trees.
type Scanner struct {
	files    metadata.FileRepository
	uploader ContentUploader
	bus      *events.Bus
}

// New creates a scanner. The uploader may be nil when scans never process
// content.
func New(files metadata.FileRepository, uploader ContentUploader, bus *events.Bus) *Scanner {
	return &Scanner{files: files, uploader: uploader, bus: bus}
}

type scanState struct {
	opts          Options
	correlationID string

	mu        sync.Mutex
	progress  ScanProgress
	lastFlush time.Time

	sem chan struct{}
	wg  sync.WaitGroup
}

// Scan walks the tree rooted at root. Directory descent is serial so
// parent IDs are known before children are processed; file work runs on a
// bounded pool.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options, correlationID string) (*ScanProgress, error) {
	if opts.ProcessContent && s.uploader == nil {
		return nil, errors.New("content processing requested without an uploader")
	}

	workers := opts.Parallelism
	if workers <= 0 {
		workers = min(8, runtime.NumCPU())
	}

	state := &scanState{
		opts:          opts,
		correlationID: correlationID,
		sem:           make(chan struct{}, workers),
	}
	state.progress.StartedAt = time.Now().UTC()

	logger.InfoCtx(ctx, "starting directory scan",
		logger.KeyRoot, root,
		"recursive", opts.Recursive,
		"process_content", opts.ProcessContent,
		"workers", workers)

	err := s.scanDirectory(ctx, state, root, "")
	state.wg.Wait()

	state.mu.Lock()
	state.progress.FinishedAt = time.Now().UTC()
	result := state.progress
	state.mu.Unlock()

	if opts.Progress != nil {
		opts.Progress(result)
	}

	logger.InfoCtx(ctx, "directory scan finished",
		logger.KeyRoot, root,
		"directories", result.DirectoriesScanned,
		"files", result.FilesDiscovered,
		"errors", len(result.Errors))

	if err != nil {
		return &result, err
	}
	return &result, nil
}

func (s *Scanner) scanDirectory(ctx context.Context, state *scanState, dir string, parentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirID, err := s.ensureDirectory(ctx, state, dir, parentID)
	if err != nil {
		state.recordError(dir, err)
		return nil
	}

	s.bus.Publish(ctx, events.DirectoryScanEvent{
		Base:        events.NewBase(state.correlationID),
		DirectoryID: dirID,
		Path:        filepath.ToSlash(dir),
	})
	state.bump(func(p *ScanProgress) { p.DirectoriesScanned++ })

	entries, err := os.ReadDir(dir)
	if err != nil {
		state.recordError(dir, err)
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if !state.opts.Recursive {
				continue
			}
			if err := s.scanDirectory(ctx, state, path, dirID); err != nil {
				return err
			}
			continue
		}

		state.wg.Add(1)
		state.sem <- struct{}{}
		go func(path string, info os.DirEntry) {
			defer state.wg.Done()
			defer func() { <-state.sem }()
			s.processFile(ctx, state, path, dirID, info)
		}(path, entry)
	}
	return nil
}

// ensureDirectory creates or refreshes the directory descriptor and
// returns its ID.
func (s *Scanner) ensureDirectory(ctx context.Context, state *scanState, dir string, parentID string) (string, error) {
	fullPath := filepath.ToSlash(dir)
	now := time.Now().UTC()

	existing, err := s.files.GetByFullPath(ctx, fullPath, state.correlationID)
	if err == nil {
		existing.ParentID = parentID
		existing.ModifiedAt = now
		existing.UpdatedAt = now
		if _, err := s.files.Update(ctx, existing, state.correlationID); err != nil {
			return "", err
		}
		return existing.ID, nil
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		return "", err
	}

	descriptor := &metadata.FileDescriptor{
		ID:            uuid.NewString(),
		Name:          filepath.Base(dir),
		FullPath:      fullPath,
		Type:          metadata.FileTypeDirectory,
		ParentID:      parentID,
		Status:        metadata.FileStatusCompleted,
		CreatedAt:     now,
		ModifiedAt:    now,
		UpdatedAt:     now,
		CorrelationID: state.correlationID,
	}
	if err := s.files.Add(ctx, descriptor, state.correlationID); err != nil {
		return "", err
	}
	return descriptor.ID, nil
}

func (s *Scanner) processFile(ctx context.Context, state *scanState, path string, parentID string, entry os.DirEntry) {
	info, err := entry.Info()
	if err != nil {
		state.recordError(path, err)
		return
	}

	var descriptor *metadata.FileDescriptor
	if state.opts.ProcessContent {
		descriptor, err = s.uploadContent(ctx, state, path, parentID, info)
	} else {
		descriptor, err = s.recordMetadata(ctx, state, path, parentID, info)
	}
	if err != nil {
		state.recordError(path, err)
		return
	}

	s.bus.Publish(ctx, events.FileDiscoveredEvent{
		Base:        events.NewBase(state.correlationID),
		FileIDValue: descriptor.ID,
		Path:        filepath.ToSlash(path),
		Size:        info.Size(),
	})

	state.bump(func(p *ScanProgress) {
		p.FilesDiscovered++
		if state.opts.ProcessContent {
			p.FilesProcessed++
			p.BytesProcessed += info.Size()
		}
	})
}

// uploadContent feeds the file through the upload pipeline, then anchors
// the resulting descriptor into the scanned tree.
func (s *Scanner) uploadContent(ctx context.Context, state *scanState, path string, parentID string, info os.FileInfo) (*metadata.FileDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	descriptor, err := s.uploader.Upload(ctx, f, filepath.ToSlash(path), state.correlationID)
	if err != nil {
		return nil, err
	}

	descriptor.ParentID = parentID
	descriptor.ModifiedAt = info.ModTime().UTC()
	descriptor.IsIndexed = true
	now := time.Now().UTC()
	descriptor.LastIndexedAt = &now
	if _, err := s.files.Update(ctx, descriptor, state.correlationID); err != nil {
		return nil, err
	}
	return descriptor, nil
}

// recordMetadata creates or refreshes a metadata-only file descriptor.
// The file stays Pending: its content has not been chunked.
func (s *Scanner) recordMetadata(ctx context.Context, state *scanState, path string, parentID string, info os.FileInfo) (*metadata.FileDescriptor, error) {
	fullPath := filepath.ToSlash(path)
	size := info.Size()
	now := time.Now().UTC()

	existing, err := s.files.GetByFullPath(ctx, fullPath, state.correlationID)
	if err == nil {
		existing.ParentID = parentID
		existing.Size = &size
		existing.ModifiedAt = info.ModTime().UTC()
		existing.UpdatedAt = now
		if _, err := s.files.Update(ctx, existing, state.correlationID); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		return nil, err
	}

	ext := filepath.Ext(path)
	descriptor := &metadata.FileDescriptor{
		ID:            uuid.NewString(),
		Name:          info.Name(),
		FullPath:      fullPath,
		Extension:     ext,
		Size:          &size,
		Type:          metadata.FileTypeFile,
		ParentID:      parentID,
		Status:        metadata.FileStatusPending,
		CreatedAt:     now,
		ModifiedAt:    info.ModTime().UTC(),
		UpdatedAt:     now,
		CorrelationID: state.correlationID,
	}
	if err := s.files.Add(ctx, descriptor, state.correlationID); err != nil {
		return nil, err
	}
	return descriptor, nil
}

func (state *scanState) recordError(path string, err error) {
	state.mu.Lock()
	state.progress.Errors = append(state.progress.Errors, ScanError{Path: path, Err: err})
	state.mu.Unlock()
}

// bump applies a progress mutation and flushes to the callback when the
// reporting interval has elapsed.
func (state *scanState) bump(mutate func(*ScanProgress)) {
	state.mu.Lock()
	mutate(&state.progress)

	var snapshot *ScanProgress
	if state.opts.Progress != nil && state.opts.ProgressInterval > 0 &&
		time.Since(state.lastFlush) >= state.opts.ProgressInterval {
		state.lastFlush = time.Now()
		copied := state.progress
		snapshot = &copied
	}
	state.mu.Unlock()

	if snapshot != nil {
		state.opts.Progress(*snapshot)
	}
}

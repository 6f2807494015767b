package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/file"
	"github.com/marmos91/chunkstore/pkg/metadata"
	"github.com/marmos91/chunkstore/pkg/scanner"
)

// UploadResult is the result of an UploadFile command.
type UploadResult struct {
	File *metadata.FileDescriptor
}

// VerifyResult is the result of a VerifyFile command.
type VerifyResult struct {
	Report *chunk.VerifyReport
}

// ListResult is the result of a ListFiles command.
type ListResult struct {
	Files []*metadata.FileDescriptor
}

// RegisterFileHandlers binds the file commands to the file service.
func RegisterFileHandlers(d *Dispatcher, service *file.Service) {
	d.Register((*UploadFileCommand)(nil).Name(), HandlerFunc(func(ctx context.Context, cmd Command) (any, error) {
		c := cmd.(*UploadFileCommand)

		f, err := os.Open(c.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", c.FilePath, err)
		}
		defer f.Close()

		descriptor, err := service.Upload(ctx, f, c.FileName, c.CorrelationID())
		if err != nil {
			return nil, err
		}
		return &UploadResult{File: descriptor}, nil
	}))

	d.Register((*DownloadFileCommand)(nil).Name(), HandlerFunc(func(ctx context.Context, cmd Command) (any, error) {
		c := cmd.(*DownloadFileCommand)

		if err := os.MkdirAll(filepath.Dir(c.OutputPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		out, err := os.Create(c.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.OutputPath, err)
		}

		if err := service.Download(ctx, c.FileID, out, c.CorrelationID()); err != nil {
			out.Close()
			os.Remove(c.OutputPath)
			return nil, err
		}
		return nil, out.Close()
	}))

	d.Register((*DeleteFileCommand)(nil).Name(), HandlerFunc(func(ctx context.Context, cmd Command) (any, error) {
		c := cmd.(*DeleteFileCommand)
		return service.Delete(ctx, c.FileID, c.CorrelationID())
	}))

	d.Register((*VerifyFileCommand)(nil).Name(), HandlerFunc(func(ctx context.Context, cmd Command) (any, error) {
		c := cmd.(*VerifyFileCommand)

		mode := chunk.VerifyShallow
		if c.Deep {
			mode = chunk.VerifyDeep
		}
		report, err := service.Verify(ctx, c.FileID, mode, c.CorrelationID())
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Report: report}, nil
	}))

	d.Register((*ListFilesCommand)(nil).Name(), HandlerFunc(func(ctx context.Context, cmd Command) (any, error) {
		c := cmd.(*ListFilesCommand)

		files, err := service.List(ctx, c.CorrelationID())
		if err != nil {
			return nil, err
		}
		return &ListResult{Files: files}, nil
	}))
}

// RegisterScanHandler binds the scan command to the directory scanner.
func RegisterScanHandler(d *Dispatcher, s *scanner.Scanner, progress func(scanner.ScanProgress)) {
	d.Register((*ScanDirectoryCommand)(nil).Name(), HandlerFunc(func(ctx context.Context, cmd Command) (any, error) {
		c := cmd.(*ScanDirectoryCommand)

		return s.Scan(ctx, c.RootPath, scanner.Options{
			Recursive:      c.Recursive,
			ProcessContent: c.ProcessContent,
			Parallelism:    c.Parallelism,
			Progress:       progress,
		}, c.CorrelationID())
	}))
}

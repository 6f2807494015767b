// Package command implements the command pipeline: typed commands, an
// ordered middleware chain (validation, logging, performance) and a
// dispatcher routing commands to their handlers.
package command

import "context"

// Command is a dispatchable request. Concrete commands embed Meta and
// declare their inputs with validation tags.
type Command interface {
	Name() string
	CorrelationID() string
	SetCorrelationID(cid string)
}

// Handler executes one command kind.
type Handler interface {
	Handle(ctx context.Context, cmd Command) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, cmd Command) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (any, error) {
	return f(ctx, cmd)
}

// Meta carries the fields shared by every command.
type Meta struct {
	CID string `validate:"-"`
}

func (m *Meta) CorrelationID() string       { return m.CID }
func (m *Meta) SetCorrelationID(cid string) { m.CID = cid }

// UploadFileCommand stores a local file.
type UploadFileCommand struct {
	Meta
	FilePath string `validate:"required"`
	FileName string `validate:"required"`
}

func (*UploadFileCommand) Name() string { return "UploadFile" }

// DownloadFileCommand reassembles a stored file to a local path.
type DownloadFileCommand struct {
	Meta
	FileID     string `validate:"required"`
	OutputPath string `validate:"required"`
}

func (*DownloadFileCommand) Name() string { return "DownloadFile" }

// DeleteFileCommand removes a stored file.
type DeleteFileCommand struct {
	Meta
	FileID string `validate:"required"`
}

func (*DeleteFileCommand) Name() string { return "DeleteFile" }

// VerifyFileCommand checks a stored file's integrity.
type VerifyFileCommand struct {
	Meta
	FileID string `validate:"required"`
	Deep   bool
}

func (*VerifyFileCommand) Name() string { return "VerifyFile" }

// ListFilesCommand lists all stored files.
type ListFilesCommand struct {
	Meta
}

func (*ListFilesCommand) Name() string { return "ListFiles" }

// ScanDirectoryCommand walks a directory tree into the metadata store.
type ScanDirectoryCommand struct {
	Meta
	RootPath       string `validate:"required"`
	Recursive      bool
	ProcessContent bool
	Parallelism    int `validate:"gte=0"`
}

func (*ScanDirectoryCommand) Name() string { return "ScanDirectory" }

// Package events provides the in-process event bus and the event types
// emitted by the storage core.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

// Kind identifies an event variant. Handlers subscribe per kind.
type Kind string

const (
	KindChunkStored    Kind = "ChunkStored"
	KindFileProcessed  Kind = "FileProcessed"
	KindFileDiscovered Kind = "FileDiscovered"
	KindDirectoryScan  Kind = "DirectoryScan"
)

// Event is the contract all published events satisfy.
type Event interface {
	EventID() string
	Kind() Kind
	Timestamp() time.Time
	CorrelationID() string
}

// Base carries the fields common to every event. Embed it in concrete
// event types.
type Base struct {
	ID   string
	Time time.Time
	CID  string
}

// NewBase creates a Base with a fresh event ID and the current time.
func NewBase(correlationID string) Base {
	return Base{
		ID:   uuid.NewString(),
		Time: time.Now().UTC(),
		CID:  correlationID,
	}
}

func (b Base) EventID() string       { return b.ID }
func (b Base) Timestamp() time.Time  { return b.Time }
func (b Base) CorrelationID() string { return b.CID }

// ChunkStoredEvent is published after a chunk's blob is durable and its
// descriptor persisted.
type ChunkStoredEvent struct {
	Base
	Chunk *metadata.ChunkDescriptor
}

func (ChunkStoredEvent) Kind() Kind { return KindChunkStored }

// FileID returns the owning file's ID, falling back to the chunk key
// convention when the descriptor's fileId is unset.
func (e ChunkStoredEvent) FileID() string {
	if e.Chunk.FileID != "" {
		return e.Chunk.FileID
	}
	return metadata.FileIDFromChunkID(e.Chunk.ID)
}

// FileProcessedEvent is published once every chunk of a file is stored and
// the file descriptor has moved to Completed.
type FileProcessedEvent struct {
	Base
	FileIDValue string
	ChunkCount  int
	Checksum    string
}

func (FileProcessedEvent) Kind() Kind { return KindFileProcessed }

// FileDiscoveredEvent is published by the directory scanner for each file
// it records.
type FileDiscoveredEvent struct {
	Base
	FileIDValue string
	Path        string
	Size        int64
}

func (FileDiscoveredEvent) Kind() Kind { return KindFileDiscovered }

// DirectoryScanEvent is published by the directory scanner for each
// directory it enters.
type DirectoryScanEvent struct {
	Base
	DirectoryID string
	Path        string
}

func (DirectoryScanEvent) Kind() Kind { return KindDirectoryScan }

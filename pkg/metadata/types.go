// Package metadata defines the file and chunk descriptors persisted by the
// storage engine, and the repository contracts for storing them.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FileType distinguishes regular files from directories.
type FileType string

const (
	FileTypeFile      FileType = "File"
	FileTypeDirectory FileType = "Directory"
)

// FileStatus is the lifecycle state of a file descriptor.
type FileStatus string

const (
	FileStatusPending    FileStatus = "Pending"
	FileStatusProcessing FileStatus = "Processing"
	FileStatusCompleted  FileStatus = "Completed"
	FileStatusError      FileStatus = "Error"
	FileStatusFailed     FileStatus = "Failed"
)

// ChunkStatus is the lifecycle state of a chunk descriptor.
type ChunkStatus string

const (
	ChunkStatusProcessing ChunkStatus = "Processing"
	ChunkStatusStored     ChunkStatus = "Stored"
	ChunkStatusError      ChunkStatus = "Error"
)

// FileDescriptor is the metadata record for a file or directory.
//
// For files with Status == Completed, exactly ChunkCount chunk descriptors
// exist with contiguous 0-based sequence numbers, and the SHA-256 of their
// concatenated plaintext equals Checksum.
type FileDescriptor struct {
	ID          string   `bson:"_id"                json:"id"`
	Name        string   `bson:"name"               json:"name"`
	FullPath    string   `bson:"fullPath"           json:"fullPath"`
	Extension   string   `bson:"extension"          json:"extension"`
	ContentType string   `bson:"contentType"        json:"contentType"`
	Size        *int64   `bson:"size,omitempty"     json:"size,omitempty"` // nil for directories
	Type        FileType `bson:"type"               json:"type"`
	ParentID    string   `bson:"parentId,omitempty" json:"parentId,omitempty"`

	// Children is populated lazily by directory queries; it is never
	// persisted with the parent document.
	Children []*FileDescriptor `bson:"-" json:"-"`

	Checksum   string     `bson:"checksum,omitempty" json:"checksum,omitempty"` // SHA-256 of full plaintext; files only
	Status     FileStatus `bson:"status"             json:"status"`
	ChunkCount int        `bson:"chunkCount"         json:"chunkCount"`

	Tags          []string   `bson:"tags,omitempty"          json:"tags,omitempty"`
	IsIndexed     bool       `bson:"isIndexed"               json:"isIndexed"`
	LastIndexedAt *time.Time `bson:"lastIndexedAt,omitempty" json:"lastIndexedAt,omitempty"`

	CreatedAt  time.Time `bson:"createdAt"  json:"createdAt"`
	ModifiedAt time.Time `bson:"modifiedAt" json:"modifiedAt"`
	UpdatedAt  time.Time `bson:"updatedAt"  json:"updatedAt"`

	CorrelationID string `bson:"correlationId" json:"correlationId"`
}

// IsDirectory reports whether the descriptor refers to a directory.
func (f *FileDescriptor) IsDirectory() bool {
	return f.Type == FileTypeDirectory
}

// Clone returns a deep copy of the descriptor (Children excluded).
func (f *FileDescriptor) Clone() *FileDescriptor {
	c := *f
	c.Children = nil
	if f.Size != nil {
		size := *f.Size
		c.Size = &size
	}
	if f.LastIndexedAt != nil {
		at := *f.LastIndexedAt
		c.LastIndexedAt = &at
	}
	if f.Tags != nil {
		c.Tags = append([]string(nil), f.Tags...)
	}
	return &c
}

// ChunkDescriptor is the metadata record for a single stored chunk.
//
// ID follows the "{fileId}_{sequenceNumber}" convention; the same string is
// used as the storage key handed to providers.
type ChunkDescriptor struct {
	ID             string `bson:"_id"            json:"id"`
	FileID         string `bson:"fileId"         json:"fileId"`
	SequenceNumber int    `bson:"sequenceNumber" json:"sequenceNumber"`

	Size           int64  `bson:"size"           json:"size"` // plaintext bytes
	CompressedSize int64  `bson:"compressedSize" json:"compressedSize"`
	Checksum       string `bson:"checksum"       json:"checksum"` // SHA-256 of plaintext
	IsCompressed   bool   `bson:"isCompressed"   json:"isCompressed"`

	StorageProviderID string `bson:"storageProviderId" json:"storageProviderId"`
	StoragePath       string `bson:"storagePath"       json:"storagePath"`

	Status ChunkStatus `bson:"status" json:"status"`

	CreatedAt        time.Time `bson:"createdAt"        json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"        json:"updatedAt"`
	StorageTimestamp time.Time `bson:"storageTimestamp" json:"storageTimestamp"`
	LastAccessTime   time.Time `bson:"lastAccessTime"   json:"lastAccessTime"`

	CorrelationID string `bson:"correlationId" json:"correlationId"`
}

// Clone returns a copy of the descriptor.
func (c *ChunkDescriptor) Clone() *ChunkDescriptor {
	cp := *c
	return &cp
}

// ChunkID builds the canonical chunk identifier for a file and sequence.
func ChunkID(fileID string, sequence int) string {
	return fmt.Sprintf("%s_%d", fileID, sequence)
}

// FileIDFromChunkID recovers the file ID from a chunk ID. File IDs are UUIDs
// and never contain underscores, so everything before the last underscore is
// the file ID. Returns "" if the chunk ID does not follow the convention.
func FileIDFromChunkID(chunkID string) string {
	i := strings.LastIndex(chunkID, "_")
	if i <= 0 {
		return ""
	}
	if _, err := strconv.Atoi(chunkID[i+1:]); err != nil {
		return ""
	}
	return chunkID[:i]
}

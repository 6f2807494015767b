package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so logs from the
// chunk pipeline, providers, repositories, and middleware can be correlated
// and queried uniformly.
const (
	// Tracing
	KeyCorrelationID = "correlation_id" // per-operation tracing identifier

	// Commands & operations
	KeyCommand   = "command"   // command name: UploadFile, DownloadFile, ...
	KeyOperation = "operation" // low-level operation: writeChunk, getById, ...
	KeyStatus    = "status"    // descriptor status or operation outcome
	KeyDuration  = "duration_ms"

	// Files & chunks
	KeyFileID     = "file_id"
	KeyFileName   = "file_name"
	KeyPath       = "path"
	KeyChunkID    = "chunk_id"
	KeySequence   = "sequence"
	KeyChunkCount = "chunk_count"
	KeySize       = "size"
	KeyChecksum   = "checksum"
	KeyCompressed = "compressed"

	// Storage
	KeyProvider    = "provider"     // storage provider ID
	KeyKind        = "kind"         // provider kind: filesystem, gridfs, s3, badger
	KeyStoragePath = "storage_path" // backend-specific locator

	// Persistence
	KeyCollection = "collection"
	KeyCacheKey   = "cache_key"
	KeyCacheHit   = "cache_hit"

	// Scanner
	KeyRoot      = "root"
	KeyFilesSeen = "files_seen"
	KeyDirsSeen  = "dirs_seen"
	KeyErrors    = "errors"

	// Events
	KeyEventID   = "event_id"
	KeyEventKind = "event_kind"
	KeyHandler   = "handler"

	// Generic
	KeyError = "error"
)

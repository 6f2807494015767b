package chunk

import "time"

// Metrics provides observability for the chunk pipeline. Pass nil to
// disable collection with zero overhead.
type Metrics interface {
	// ObserveChunkStored records one stored chunk: its provider, plaintext
	// and stored blob sizes, how long the write took, and the outcome.
	ObserveChunkStored(provider string, plaintextBytes, storedBytes int64, duration time.Duration, err error)

	// ObserveChunkRead records one chunk read with its provider, plaintext
	// size, duration and outcome.
	ObserveChunkRead(provider string, plaintextBytes int64, duration time.Duration, err error)

	// ObserveRollback records a best-effort rollback sweep after a failed
	// upload.
	ObserveRollback(chunksRemoved int64)
}

// Package bufpool provides a tiered buffer pool for chunk I/O.
//
// The chunk pipeline reads, compresses, and hashes one buffer per in-flight
// chunk. Pooling those buffers keeps allocation pressure flat regardless of
// how many uploads run concurrently.
//
// Three size tiers cover the common cases:
//   - Small buffers (64KB): metadata reads and sub-minimum chunks
//   - Medium buffers (1MB): the default chunk size
//   - Large buffers (16MB): chunks sized up for very large files
//
// Requests larger than the large tier are allocated directly and not pooled,
// so oversized buffers never linger in memory.
//
// All operations are thread-safe via sync.Pool.
package bufpool

import "sync"

// Default buffer size classes.
const (
	// DefaultSmallSize covers metadata and short tail chunks (64KB)
	DefaultSmallSize = 64 << 10

	// DefaultMediumSize matches the default chunk size (1MB)
	DefaultMediumSize = 1 << 20

	// DefaultLargeSize covers scaled-up chunk sizes (16MB)
	DefaultLargeSize = 16 << 20
)

// Pool manages byte slice pools organized by size class. It selects the
// smallest tier that satisfies a request and falls back to direct allocation
// for oversized requests.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config holds configuration for creating a custom buffer pool.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// New creates a new buffer pool with the given configuration.
// Zero or negative sizes fall back to the defaults.
func New(cfg Config) *Pool {
	if cfg.SmallSize <= 0 {
		cfg.SmallSize = DefaultSmallSize
	}
	if cfg.MediumSize <= 0 {
		cfg.MediumSize = DefaultMediumSize
	}
	if cfg.LargeSize <= 0 {
		cfg.LargeSize = DefaultLargeSize
	}

	p := &Pool{
		smallSize:  cfg.SmallSize,
		mediumSize: cfg.MediumSize,
		largeSize:  cfg.LargeSize,
	}

	p.small = sync.Pool{
		New: func() any {
			buf := make([]byte, p.smallSize)
			return &buf
		},
	}
	p.medium = sync.Pool{
		New: func() any {
			buf := make([]byte, p.mediumSize)
			return &buf
		},
	}
	p.large = sync.Pool{
		New: func() any {
			buf := make([]byte, p.largeSize)
			return &buf
		},
	}

	return p
}

// Get returns a byte slice with length size. The backing array may be larger.
// The slice must be returned with Put when no longer needed.
func (p *Pool) Get(size int) []byte {
	switch {
	case size <= p.smallSize:
		buf := *(p.small.Get().(*[]byte))
		return buf[:size]
	case size <= p.mediumSize:
		buf := *(p.medium.Get().(*[]byte))
		return buf[:size]
	case size <= p.largeSize:
		buf := *(p.large.Get().(*[]byte))
		return buf[:size]
	default:
		// Oversized: allocate directly, never pooled
		return make([]byte, size)
	}
}

// Put returns a buffer to the appropriate pool. Buffers that did not come
// from a pool tier are dropped for the GC to collect.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case p.smallSize:
		p.small.Put(&buf)
	case p.mediumSize:
		p.medium.Put(&buf)
	case p.largeSize:
		p.large.Put(&buf)
	}
}

// defaultPool is the process-wide pool used by the package-level functions.
var defaultPool = New(DefaultConfig())

// Get returns a buffer from the default pool.
func Get(size int) []byte { return defaultPool.Get(size) }

// Put returns a buffer to the default pool.
func Put(buf []byte) { defaultPool.Put(buf) }

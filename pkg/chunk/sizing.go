package chunk

import "math/bits"

// SizePolicy selects the target chunk size for a file. All sizes are in
// bytes.
type SizePolicy struct {
	Min     int64
	Default int64
	Max     int64
}

// ChunkSizeFor returns the chunk size to use for a plaintext of the given
// total size. Files no larger than Min fit in a single chunk; mid-sized
// files use the default; large files scale the chunk size so the file
// splits into roughly sixteen chunks, capped at Max.
func (p SizePolicy) ChunkSizeFor(totalSize int64) int64 {
	switch {
	case totalSize <= p.Min:
		return p.Min
	case totalSize <= 16*p.Default:
		return p.Default
	default:
		size := nextPowerOfTwo(totalSize / 16)
		if size > p.Max {
			return p.Max
		}
		return size
	}
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int64) int64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(n-1))
}

package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkSizeFor(t *testing.T) {
	policy := SizePolicy{
		Min:     256 * 1024,
		Default: 1024 * 1024,
		Max:     16 * 1024 * 1024,
	}

	tests := []struct {
		name string
		size int64
		want int64
	}{
		{"tiny file fits one chunk", 100, 256 * 1024},
		{"exactly min", 256 * 1024, 256 * 1024},
		{"mid-sized uses default", 3 * 1024 * 1024, 1024 * 1024},
		{"exactly 16x default", 16 * 1024 * 1024, 1024 * 1024},
		{"just above 16x default", 16*1024*1024 + 1, 1024 * 1024},
		{"32 MiB doubles chunk size", 32 * 1024 * 1024, 2 * 1024 * 1024},
		{"100 MiB scales up", 100 * 1024 * 1024, 8 * 1024 * 1024},
		{"huge file capped at max", 1024 * 1024 * 1024, 16 * 1024 * 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ChunkSizeFor(tt.size))
		})
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int64 }{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{1023, 1024},
		{1024, 1024},
		{1025, 2048},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextPowerOfTwo(tt.in), "nextPowerOfTwo(%d)", tt.in)
	}
}

package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "f1_0", ChunkID("f1", 0))
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000_12", ChunkID("550e8400-e29b-41d4-a716-446655440000", 12))
}

func TestFileIDFromChunkID(t *testing.T) {
	tests := []struct {
		chunkID string
		want    string
	}{
		{"f1_0", "f1"},
		{"550e8400-e29b-41d4-a716-446655440000_12", "550e8400-e29b-41d4-a716-446655440000"},
		{"noseparator", ""},
		{"_0", ""},
		{"f1_abc", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileIDFromChunkID(tt.chunkID), "chunkID=%s", tt.chunkID)
	}
}

func TestFileDescriptorClone(t *testing.T) {
	size := int64(42)
	at := time.Now()
	f := &FileDescriptor{
		ID:            "f1",
		Size:          &size,
		Tags:          []string{"a", "b"},
		LastIndexedAt: &at,
	}

	c := f.Clone()
	*c.Size = 99
	c.Tags[0] = "mutated"
	*c.LastIndexedAt = at.Add(time.Hour)

	assert.Equal(t, int64(42), *f.Size)
	assert.Equal(t, "a", f.Tags[0])
	assert.Equal(t, at, *f.LastIndexedAt)
}

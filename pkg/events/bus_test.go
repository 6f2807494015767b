package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

func storedEvent(fileID string, seq int) ChunkStoredEvent {
	return ChunkStoredEvent{
		Base: NewBase("cid"),
		Chunk: &metadata.ChunkDescriptor{
			ID:             metadata.ChunkID(fileID, seq),
			FileID:         fileID,
			SequenceNumber: seq,
			Status:         metadata.ChunkStatusStored,
		},
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	var got []string
	for _, name := range []string{"first", "second"} {
		name := name
		bus.Subscribe(KindChunkStored, name, func(ctx context.Context, e Event) error {
			got = append(got, name)
			return nil
		})
	}

	bus.Publish(context.Background(), storedEvent("f1", 0))
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestPublishIsolatesFailingHandlers(t *testing.T) {
	bus := NewBus()

	var delivered int
	bus.Subscribe(KindChunkStored, "panicking", func(ctx context.Context, e Event) error {
		panic("boom")
	})
	bus.Subscribe(KindChunkStored, "failing", func(ctx context.Context, e Event) error {
		return errors.New("handler error")
	})
	bus.Subscribe(KindChunkStored, "counting", func(ctx context.Context, e Event) error {
		delivered++
		return nil
	})

	bus.Publish(context.Background(), storedEvent("f1", 0))
	assert.Equal(t, 1, delivered, "healthy handler must still run")
}

func TestPublishFiltersByKind(t *testing.T) {
	bus := NewBus()

	var calls int
	bus.Subscribe(KindFileProcessed, "counter", func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), storedEvent("f1", 0))
	assert.Zero(t, calls)

	bus.Publish(context.Background(), FileProcessedEvent{Base: NewBase("cid"), FileIDValue: "f1"})
	assert.Equal(t, 1, calls)
}

func TestEventCarriesIdentity(t *testing.T) {
	e := storedEvent("f1", 3)
	require.NotEmpty(t, e.EventID())
	assert.Equal(t, KindChunkStored, e.Kind())
	assert.Equal(t, "cid", e.CorrelationID())
	assert.False(t, e.Timestamp().IsZero())
}

func TestChunkStoredFileIDFallback(t *testing.T) {
	e := ChunkStoredEvent{
		Base: NewBase("cid"),
		Chunk: &metadata.ChunkDescriptor{
			ID:             metadata.ChunkID("file-42", 7),
			SequenceNumber: 7,
		},
	}
	assert.Equal(t, "file-42", e.FileID())

	e.Chunk.ID = "not-a-chunk-key"
	assert.Empty(t, e.FileID())
}

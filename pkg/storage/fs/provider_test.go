package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/chunkstore/pkg/storage"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	p, err := New("fs-test", DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	data := []byte("hello chunk")
	path, err := p.WriteChunk(ctx, "file1_0", bytes.NewReader(data), "cid")
	if err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	if !strings.HasPrefix(path, "fi/") {
		t.Errorf("storage path %q not fanned into subdirectory", path)
	}

	rc, err := p.ReadChunk(ctx, "file1_0", path, "cid")
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read %q, want %q", got, data)
	}

	// The blob must be a regular file under the root at the returned path.
	if _, err := os.Stat(filepath.Join(p.Root(), filepath.FromSlash(path))); err != nil {
		t.Errorf("chunk file missing: %v", err)
	}
}

func TestReadMissingChunk(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	_, err := p.ReadChunk(ctx, "ghost_0", "gh/ghost_0", "cid")
	if !storage.IsNotFound(err) {
		t.Errorf("ReadChunk error = %v, want chunk-not-found", err)
	}
}

func TestChunkExists(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	path, err := p.WriteChunk(ctx, "f_0", bytes.NewReader([]byte("x")), "cid")
	if err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}

	ok, err := p.ChunkExists(ctx, "f_0", path, "cid")
	if err != nil || !ok {
		t.Errorf("ChunkExists = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = p.ChunkExists(ctx, "f_1", "f_/f_1", "cid")
	if err != nil || ok {
		t.Errorf("ChunkExists on missing = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	path, err := p.WriteChunk(ctx, "f_0", bytes.NewReader([]byte("x")), "cid")
	if err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := p.DeleteChunk(ctx, "f_0", path, "cid")
		if err != nil || !ok {
			t.Errorf("DeleteChunk #%d = (%v, %v), want (true, nil)", i+1, ok, err)
		}
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	if _, err := p.WriteChunk(ctx, "f_0", bytes.NewReader(bytes.Repeat([]byte("a"), 1<<16)), "cid"); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}

	err := filepath.WalkDir(p.Root(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	p := newTestProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.WriteChunk(ctx, "f_0", bytes.NewReader([]byte("x")), "cid"); err == nil {
		t.Error("WriteChunk with canceled context succeeded")
	}
}

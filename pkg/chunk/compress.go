package chunk

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// compress gzips data at the given level (0-9).
func compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer

	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("invalid compression level %d: %w", level, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

// decompress gunzips a blob produced by compress.
func decompress(blob []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return data, nil
}

package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/marmos91/chunkstore/pkg/metadata"
)

// VerifyMode selects how much work integrity verification does.
type VerifyMode int

const (
	// VerifyShallow checks metadata only: chunk count, sequence
	// contiguity and duplicates.
	VerifyShallow VerifyMode = iota

	// VerifyDeep additionally reads every blob and re-checks size and
	// checksum.
	VerifyDeep
)

// VerifyReport summarizes an integrity check.
type VerifyReport struct {
	FileID         string
	ChunksExpected int
	ChunksChecked  int
	Missing        []int
	Duplicates     []int
	Mismatched     []int
	OK             bool
}

// Verify checks the chunk manifest of a file against the expected chunk
// count. Deep mode also reads and re-hashes every blob. The report is
// always populated; the error return covers repository and provider
// failures only, never integrity findings.
func (m *Manager) Verify(ctx context.Context, fileID string, expected int, mode VerifyMode, correlationID string) (*VerifyReport, error) {
	report := &VerifyReport{FileID: fileID, ChunksExpected: expected}

	chunks, err := m.chunks.GetChunksByFileID(ctx, fileID, correlationID)
	if err != nil {
		return report, fmt.Errorf("failed to load chunks for file %s: %w", fileID, err)
	}

	seen := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		if seen[c.SequenceNumber] {
			report.Duplicates = append(report.Duplicates, c.SequenceNumber)
			continue
		}
		seen[c.SequenceNumber] = true
	}
	for seq := 0; seq < expected; seq++ {
		if !seen[seq] {
			report.Missing = append(report.Missing, seq)
		}
	}

	if mode == VerifyDeep {
		for _, c := range chunks {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			plaintext, err := m.readChunkRaw(ctx, c, correlationID)
			if err != nil {
				report.Mismatched = append(report.Mismatched, c.SequenceNumber)
				continue
			}
			report.ChunksChecked++

			sum := sha256.Sum256(plaintext)
			if int64(len(plaintext)) != c.Size || hex.EncodeToString(sum[:]) != c.Checksum {
				report.Mismatched = append(report.Mismatched, c.SequenceNumber)
			}
		}
	} else {
		report.ChunksChecked = len(chunks)
	}

	report.OK = len(report.Missing) == 0 &&
		len(report.Duplicates) == 0 &&
		len(report.Mismatched) == 0 &&
		len(chunks) == expected

	return report, nil
}

// readChunkRaw fetches and decompresses one chunk without checksum
// enforcement; deep verification does its own comparison.
func (m *Manager) readChunkRaw(ctx context.Context, c *metadata.ChunkDescriptor, correlationID string) ([]byte, error) {
	provider, err := m.registry.Resolve(c.StorageProviderID)
	if err != nil {
		return nil, err
	}

	rc, err := provider.ReadChunk(ctx, c.ID, c.StoragePath, correlationID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	blob, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	if c.IsCompressed {
		return decompress(blob)
	}
	return blob, nil
}

package chunk

import "fmt"

// IntegrityError reports a checksum mismatch, missing or duplicate
// sequence, or size mismatch in a file's chunk manifest. It is always fatal
// to the enclosing operation.
type IntegrityError struct {
	FileID   string
	Sequence int // -1 when the failure is not tied to one chunk
	Reason   string
}

func (e *IntegrityError) Error() string {
	if e.Sequence < 0 {
		return fmt.Sprintf("integrity violation on file %s: %s", e.FileID, e.Reason)
	}
	return fmt.Sprintf("integrity violation on file %s chunk %d: %s", e.FileID, e.Sequence, e.Reason)
}

package commands

import (
	"github.com/marmos91/chunkstore/internal/bytesize"
)

// formatSize renders a descriptor size. Directories carry no size.
func formatSize(size *int64) string {
	if size == nil {
		return "-"
	}
	return bytesize.ByteSize(*size).String()
}

//go:build windows

package logger

// isTerminal always returns false on Windows; plain text output is used.
func isTerminal(fd uintptr) bool {
	return false
}

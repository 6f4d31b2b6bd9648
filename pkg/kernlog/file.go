package kernlog

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoEvents is returned by the callers when a log has no anchor at all.
var ErrNoEvents = errors.New("no events found")

// ReadFile reads the whole log into memory.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read log file %q: %w", path, err)
	}
	return string(b), nil
}

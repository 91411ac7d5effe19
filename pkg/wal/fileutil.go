package wal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LogPath returns the log file location for a node.
func LogPath(dataDir string, nodeID int) string {
	return filepath.Join(dataDir, fmt.Sprintf("node_%d.wal", nodeID))
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileSize returns the size of a file in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// terminateTail makes sure a non-empty file ends with a newline, so a
// partially written final record stays on its own line once new records
// are appended after it. It reports whether a newline had to be written.
//
// A tail that is a complete record missing only its newline becomes a
// valid line and replays as applied, although its Append never returned.
// Under last-write-wins this only resurrects a write the client saw fail.
func terminateTail(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read log tail: %w", err)
	}
	if last[0] == '\n' {
		return false, nil
	}

	if _, err := f.Write([]byte{'\n'}); err != nil {
		return false, fmt.Errorf("failed to terminate log tail: %w", err)
	}
	if err := f.Sync(); err != nil {
		return false, fmt.Errorf("failed to sync log tail: %w", err)
	}
	return true, nil
}

package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeFileAtomic writes path through a temp file in the same directory and
// renames it into place, so readers never observe a partially written snapshot.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ytinsight-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	abort := func(cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return cause
	}

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		return abort(err)
	}
	if err := buf.Flush(); err != nil {
		return abort(fmt.Errorf("flush: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return abort(fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

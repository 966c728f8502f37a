package qlearn

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadTableFile loads a table from path. A missing file is not an error and
// yields an empty table; malformed content yields a *FormatError.
func ReadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("qlearn: cannot read table: %w", err)
	}
	return ParseTable(data)
}

// WriteTableFile stores the table at path, going through a temporary file
// so a crash never leaves a truncated table behind.
func WriteTableFile(path string, t *Table) error {
	data, err := t.MarshalText()
	if err != nil {
		return fmt.Errorf("qlearn: cannot encode table: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("qlearn: cannot create directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("qlearn: cannot write table: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("qlearn: cannot rename table: %w", err)
	}
	return nil
}

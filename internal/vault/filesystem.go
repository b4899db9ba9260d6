// Package vault provides the archive backends that receive scan exports
// before the retention engine deletes them.
package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSystemVault archives exports as files under a root directory. Object
// names may contain slashes; intermediate directories are created as needed.
type FileSystemVault struct {
	root string
}

// NewFileSystemVault creates a filesystem vault rooted at the given path.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &FileSystemVault{root: root}, nil
}

// Archive writes data under name. Re-archiving the same name overwrites;
// the export for a given scan is deterministic, so this is idempotent.
func (v *FileSystemVault) Archive(_ context.Context, name string, data []byte) error {
	destPath := filepath.Join(v.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	// Write to a temp file and rename so a crashed write never leaves a
	// truncated export behind.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".archive-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to place archive: %w", err)
	}
	return nil
}

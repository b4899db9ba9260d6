// Package checksum computes streaming SHA-256 digests over regular files.
// Precondition failures (missing, irregular, empty, oversized, locked,
// unreadable) are soft skips reported as *SkipError so callers can continue
// scanning the rest of the tree.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// readBufferSize bounds per-file memory regardless of file size.
const readBufferSize = 64 * 1024

// SkipError marks a file that could not be checksummed but should not abort
// the scan. Reason is a short, log-friendly explanation.
type SkipError struct {
	Path   string
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped %s: %s", e.Path, e.Reason)
}

func skip(path, reason string) error {
	return &SkipError{Path: path, Reason: reason}
}

// Engine computes SHA-256 digests with a configured maximum file size.
type Engine struct {
	maxFileSize int64
}

// NewEngine creates a checksum engine. maxFileSize <= 0 means no size cap.
func NewEngine(maxFileSize int64) *Engine {
	return &Engine{maxFileSize: maxFileSize}
}

// Sum returns the lowercase hex SHA-256 digest of the file at path.
// Digest equality is the sole correctness criterion for "unchanged".
//
// The file must exist, be a regular non-empty file, be readable, and fit
// the configured size cap; a non-blocking shared advisory lock is attempted
// before reading so files being actively written are skipped rather than
// stalling the scan. All such failures return *SkipError.
func (e *Engine) Sum(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", skip(path, "file does not exist")
		}
		return "", skip(path, fmt.Sprintf("stat failed: %v", err))
	}

	if !info.Mode().IsRegular() {
		return "", skip(path, "not a regular file")
	}
	if info.Size() == 0 {
		return "", skip(path, "file is empty")
	}
	if e.maxFileSize > 0 && info.Size() > e.maxFileSize {
		return "", skip(path, fmt.Sprintf("file size %d exceeds limit %d", info.Size(), e.maxFileSize))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", skip(path, fmt.Sprintf("not readable: %v", err))
	}
	defer f.Close()

	locked, err := tryLockShared(f)
	if err != nil {
		return "", skip(path, fmt.Sprintf("lock failed: %v", err))
	}
	if !locked {
		return "", skip(path, "file is locked by another process")
	}
	defer unlock(f)

	h := sha256.New()
	buf := make([]byte, readBufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", skip(path, fmt.Sprintf("read failed: %v", err))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

//go:build unix

package checksum

import (
	"errors"
	"os"
	"syscall"
)

// tryLockShared attempts a non-blocking shared flock on f.
// Returns false (no error) when the lock is held exclusively elsewhere.
func tryLockShared(f *os.File) (bool, error) {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
		return false, nil
	}
	return false, err
}

func unlock(f *os.File) {
	// Best-effort; the lock is released on close anyway.
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

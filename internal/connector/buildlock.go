package connector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// ErrBuildInProgress reports that another index build holds the lock.
var ErrBuildInProgress = errors.New("an index build is already running")

// BuildLock serializes index builds across processes using flock(2).
// The lock is released automatically if the holder crashes.
type BuildLock struct {
	path string
	file *os.File
}

// NewBuildLock creates a build lock at the given path. The lock file and
// its parent directories are created on first acquisition.
func NewBuildLock(path string) *BuildLock {
	return &BuildLock{path: path}
}

// Acquire takes the lock without blocking. Returns ErrBuildInProgress when
// another build holds it.
func (l *BuildLock) Acquire() error {
	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrBuildInProgress
		}
		return fmt.Errorf("flock failed: %w", err)
	}

	l.file = file
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *BuildLock) Release() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

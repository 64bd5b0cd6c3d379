package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LockFileName is the single-instance lock held by a running daemon.
const LockFileName = AppName + ".lock"

// ErrLocked is returned by Lock when another process holds the lock.
var ErrLocked = errors.New("another keepclip daemon is using this data directory")

// DirLock is an exclusive lock on a data directory.
type DirLock struct {
	f *os.File
}

// Lock takes the exclusive, non-blocking lock on dir, creating dir if needed.
func Lock(dir string) (*DirLock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	f, err := acquireFileLock(filepath.Join(dir, LockFileName))
	if err != nil {
		return nil, err
	}
	return &DirLock{f: f}, nil
}

// Unlock releases the lock and removes the lock file.
func (l *DirLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := releaseFileLock(l.f)
	l.f = nil
	return err
}

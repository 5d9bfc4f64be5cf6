package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	laurus "github.com/Aman-CERP/laurus"
)

const defaultRetryDelay = 50 * time.Millisecond

// FileLocker enforces the single-writer invariant across processes
// using an advisory OS file lock. Works on Unix, Linux, macOS, and
// Windows via gofrs/flock.
type FileLocker struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLocker returns a locker for "<dir>/.write.lock".
func NewFileLocker(dir string) *FileLocker {
	path := filepath.Join(dir, ".write.lock")
	return &FileLocker{path: path, flock: flock.New(path)}
}

// Lock blocks until the exclusive lock is acquired.
func (l *FileLocker) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	if err := l.flock.LockContext(ctx, defaultRetryDelay); err != nil {
		return laurus.WrapMessage(laurus.KindIo, "acquire write lock", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLocker) TryLock(_ context.Context) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, laurus.Wrap(laurus.KindIo, err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, laurus.WrapMessage(laurus.KindIo, "acquire write lock", err)
	}
	l.locked = ok
	return ok, nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *FileLocker) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return laurus.WrapMessage(laurus.KindIo, "release write lock", err)
	}
	l.locked = false
	return nil
}

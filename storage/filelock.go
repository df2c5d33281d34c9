package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a contended lock is retried.
const lockRetryDelay = 25 * time.Millisecond

// FileLock provides advisory file locking for cross-process synchronization
// of write commands against one database.
type FileLock struct {
	path string
	lock *flock.Flock
}

// NewFileLock creates a file lock at path. The lock is not acquired until Lock() is called.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *FileLock) Path() string { return l.path }

// Lock acquires an exclusive lock with the specified timeout.
// Returns ErrLockTimeout if the lock cannot be acquired within the timeout.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := l.lock.TryLockContext(lockCtx, lockRetryDelay)
	if ok {
		return nil
	}
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil || lockCtx.Err() != nil {
		return ErrLockTimeout
	}
	return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return &StorageError{Op: "unlock", Entity: "file", ID: l.path, Err: err}
	}
	return nil
}

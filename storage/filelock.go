package storage

import (
	"context"
	"errors"
	"os"

	"ytinsight/internal/retry"
)

// errLockBusy is returned by a single failed flock attempt.
var errLockBusy = errors.New("storage: lock busy")

// fileLock provides advisory cross-process locking of a store file.
// The lock file lives next to the guarded file at path + ".lock".
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path + ".lock"}
}

// tryLock makes one non-blocking attempt at an exclusive lock.
func (l *fileLock) tryLock() error {
	if l.file == nil {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return &StorageError{Op: "lock", Backend: "file", Key: l.path, Err: err}
		}
		l.file = f
	}
	if err := lockExclusive(l.file); err != nil {
		return errLockBusy
	}
	return nil
}

// lock polls tryLock with backoff until it succeeds, the attempts in p run out
// (ErrLockTimeout) or ctx ends.
func (l *fileLock) lock(ctx context.Context, p retry.Policy) error {
	err := retry.Do(ctx, p, func(err error) bool {
		return errors.Is(err, errLockBusy)
	}, func(context.Context) error {
		return l.tryLock()
	})
	if err == nil {
		return nil
	}

	l.release()
	if errors.Is(err, errLockBusy) {
		return ErrLockTimeout
	}
	return err
}

// unlock releases the lock and removes the lock file.
func (l *fileLock) unlock() error {
	if l.file == nil {
		return nil
	}
	unlockFile(l.file)
	l.release()
	os.Remove(l.path)
	return nil
}

func (l *fileLock) release() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

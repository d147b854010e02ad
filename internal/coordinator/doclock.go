package coordinator

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// docLockPollInterval governs how often a blocking document-lock wait
// retries its non-blocking attempt.
const docLockPollInterval = 50 * time.Millisecond

// DocLock is the Go analogue of the original program's fcntl(F_RDLCK /
// F_WRLCK) whole-file range lock (C3). gofrs/flock's RLock/Lock already
// operate over the whole file, matching an l_start=0, l_len=0 fcntl lock.
type DocLock struct {
	path string
}

// NewDocLock returns a DocLock for the document at path.
func NewDocLock(path string) *DocLock {
	return &DocLock{path: path}
}

// freshHandle opens a brand-new *flock.Flock on every acquire attempt.
// This matters specifically for the owner's forced takeover (C6): after
// force-clearing HolderPID the owner must contend for the lock with a
// fresh descriptor rather than reusing one that might still observe a
// stale lock state from before the takeover.
func (d *DocLock) freshHandle() *flock.Flock {
	return flock.New(d.path)
}

// AcquireShared blocks until a shared (read) lock is obtained or ctx is done.
func (d *DocLock) AcquireShared(ctx context.Context) (*flock.Flock, error) {
	fl := d.freshHandle()
	if err := pollAcquire(ctx, fl.TryRLock, docLockPollInterval); err != nil {
		return nil, err
	}
	return fl, nil
}

// TryAcquireShared makes one non-blocking attempt at a shared lock.
func (d *DocLock) TryAcquireShared() (*flock.Flock, bool, error) {
	fl := d.freshHandle()
	ok, err := fl.TryRLock()
	if err != nil || !ok {
		return nil, ok, err
	}
	return fl, true, nil
}

// AcquireExclusive blocks until an exclusive (write) lock is obtained or ctx is done.
func (d *DocLock) AcquireExclusive(ctx context.Context) (*flock.Flock, error) {
	fl := d.freshHandle()
	if err := pollAcquire(ctx, fl.TryLock, docLockPollInterval); err != nil {
		return nil, err
	}
	return fl, nil
}

// TryAcquireExclusive makes one non-blocking attempt at an exclusive lock.
func (d *DocLock) TryAcquireExclusive() (*flock.Flock, bool, error) {
	fl := d.freshHandle()
	ok, err := fl.TryLock()
	if err != nil || !ok {
		return nil, ok, err
	}
	return fl, true, nil
}

// Release unlocks and closes the file handle obtained from an Acquire* call.
func Release(fl *flock.Flock) error {
	if fl == nil {
		return nil
	}
	return fl.Unlock()
}

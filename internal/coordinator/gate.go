package coordinator

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// Gate is a cross-process binary semaphore backed by an advisory file
// lock. The original program's access_sem and owner_sem are both POSIX
// named semaphores created with an initial value of 1 and used purely as
// mutexes/turnstiles (sem_wait immediately followed by sem_post), never
// as multi-count semaphores — so a single-slot file lock is a faithful,
// idiomatic Go rendering, and it sidesteps needing cgo or raw SysV IPC
// syscalls this repo cannot verify compile without running the toolchain.
type Gate struct {
	fl *flock.Flock
}

// NewGate opens (creating if necessary) the gate file at path.
func NewGate(path string) *Gate {
	return &Gate{fl: flock.New(path)}
}

// gatePollInterval is how often Wait retries TryWait while blocked.
// flock.Flock's blocking Lock() has no context support, so cancellable
// waits are built out of TryWait polling instead.
const gatePollInterval = 20 * time.Millisecond

// Wait blocks until the gate is acquired or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	return pollAcquire(ctx, g.fl.TryLock, gatePollInterval)
}

// TryWait attempts a non-blocking acquire. Returns (true, nil) if
// acquired, (false, nil) if held elsewhere, or an error.
func (g *Gate) TryWait() (bool, error) {
	return g.fl.TryLock()
}

// Post releases the gate.
func (g *Gate) Post() error {
	return g.fl.Unlock()
}

// pollAcquire repeatedly calls TryWait with the given interval until it
// succeeds or ctx is cancelled. Used by the reader/writer protocol's
// waiting paths, generalizing internal/lock's backoff-based polling.
func pollAcquire(ctx context.Context, tryFn func() (bool, error), interval time.Duration) error {
	ok, err := tryFn()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ok, err := tryFn()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
}

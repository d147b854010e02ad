package coordinator

import (
	"context"
	"time"

	"github.com/gofrs/flock"

	"github.com/nsavic/docshare/internal/audit"
)

// ownerReadTimeout mirrors the original program's alarm(5) deadline on
// the owner's non-blocking-then-blocking read acquire.
const ownerReadTimeout = 5 * time.Second

// readerPollInterval governs how long a write acquirer waits between
// checks of ReaderCount while readers are still active.
const readerPollInterval = 25 * time.Millisecond

// AcquireRead obtains a read hold on the document for user. For an
// owner coordinator it is the original program's owner fast-path in
// acquire_read_lock: detect any existing hold and signal its holder,
// then take a shared flock with a 5-second deadline. For a non-owner it
// is the pass-through turnstile plus access-gated reader-count protocol.
//
// The returned *flock.Flock is non-nil only for the owner path — owners
// take a real shared OS lock so they observe an active writer even
// though they never read the gate-protected ReaderCount; non-owner
// readers rely entirely on SharedState.ReaderCount, so nothing needs
// releasing at the OS level on their behalf.
func AcquireRead(ctx context.Context, co *Coordinator, user string) (*flock.Flock, error) {
	var fl *flock.Flock
	var err error
	if co.Role == RoleOwner {
		fl, err = acquireReadOwner(ctx, co)
	} else {
		err = acquireReadUser(ctx, co, user)
	}
	if err != nil {
		co.emitAudit(audit.EventDenyRead, user, map[string]any{"error": err.Error()})
		return nil, err
	}
	co.emitAudit(audit.EventAcquireRead, user, nil)
	return fl, nil
}

func acquireReadOwner(ctx context.Context, co *Coordinator) (*flock.Flock, error) {
	view, err := co.State.View()
	if err != nil {
		return nil, err
	}
	if view.LockMode == LockWrite && view.HolderPID > 0 && view.HolderPID != co.PID {
		co.Log.Info().Int("holder_pid", view.HolderPID).Msg("owner detected write hold, signaling priority")
		_ = SendPriority(view.HolderPID)
		time.Sleep(100 * time.Millisecond)
	}

	fl, ok, err := co.Doc.TryAcquireShared()
	if err != nil {
		return nil, err
	}
	if !ok {
		timeoutCtx, cancel := context.WithTimeout(ctx, ownerReadTimeout)
		defer cancel()
		fl, err = co.Doc.AcquireShared(timeoutCtx)
		if err != nil {
			return nil, &LockTimeoutError{HeldByPID: view.HolderPID}
		}
	}

	err = co.State.Mutate(func(s *SharedState) error {
		s.HolderPID = co.PID
		s.LockMode = LockRead
		s.OwnerWaiting = false
		return nil
	})
	if err != nil {
		_ = Release(fl)
		return nil, err
	}
	return fl, nil
}

func acquireReadUser(ctx context.Context, co *Coordinator, user string) error {
	if err := co.Owner.Wait(ctx); err != nil {
		return err
	}
	_ = co.Owner.Post()

	view, err := co.State.View()
	if err != nil {
		return err
	}
	if view.OwnerWaiting {
		return &OwnerPriorityError{User: user}
	}

	if err := co.Access.Wait(ctx); err != nil {
		return err
	}
	view, err = co.State.View()
	if err != nil {
		_ = co.Access.Post()
		return err
	}
	if view.OwnerWaiting {
		_ = co.Access.Post()
		return &OwnerPriorityError{User: user}
	}

	err = co.State.Mutate(func(s *SharedState) error {
		s.ReaderCount++
		if s.ReaderCount == 1 {
			s.HolderPID = co.PID
			s.LockMode = LockRead
		}
		return nil
	})
	_ = co.Access.Post()
	return err
}

// AcquireWrite obtains an exclusive hold on the document for user. The
// returned *flock.Flock must be passed to ReleaseWrite.
func AcquireWrite(ctx context.Context, co *Coordinator, user string) (*flock.Flock, error) {
	var fl *flock.Flock
	var err error
	if co.Role == RoleOwner {
		fl, err = acquireWriteOwner(ctx, co)
	} else {
		fl, err = acquireWriteUser(ctx, co, user)
	}
	if err != nil {
		co.emitAudit(audit.EventDenyWrite, user, map[string]any{"error": err.Error()})
		return nil, err
	}
	co.emitAudit(audit.EventAcquireWrite, user, nil)
	return fl, nil
}

func acquireWriteOwner(ctx context.Context, co *Coordinator) (*flock.Flock, error) {
	var holder int
	err := co.State.Mutate(func(s *SharedState) error {
		s.OwnerWaiting = true
		holder = s.HolderPID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if holder > 0 && holder != co.PID {
		co.Log.Info().Int("holder_pid", holder).Msg("owner taking write priority")
		_ = SendPriority(holder)
	}

	if err := waitForNoReaders(ctx, co, ""); err != nil {
		return nil, err
	}

	fl, err := co.Doc.AcquireExclusive(ctx)
	if err != nil {
		return nil, err
	}

	err = co.State.Mutate(func(s *SharedState) error {
		s.HolderPID = co.PID
		s.LockMode = LockWrite
		s.OwnerWaiting = false
		return nil
	})
	if err != nil {
		_ = Release(fl)
		return nil, err
	}
	return fl, nil
}

func acquireWriteUser(ctx context.Context, co *Coordinator, user string) (*flock.Flock, error) {
	if err := co.Owner.Wait(ctx); err != nil {
		return nil, err
	}
	_ = co.Owner.Post()

	view, err := co.State.View()
	if err != nil {
		return nil, err
	}
	if view.OwnerWaiting {
		return nil, &OwnerPriorityError{User: user}
	}

	// Held for the whole write session, matching the original's comment
	// that access_sem stays held until release_write_lock.
	if err := co.Access.Wait(ctx); err != nil {
		return nil, err
	}

	view, err = co.State.View()
	if err != nil {
		_ = co.Access.Post()
		return nil, err
	}
	if view.OwnerWaiting {
		_ = co.Access.Post()
		return nil, &OwnerPriorityError{User: user}
	}

	if err := waitForNoReaders(ctx, co, user); err != nil {
		_ = co.Access.Post()
		return nil, err
	}

	fl, err := co.Doc.AcquireExclusive(ctx)
	if err != nil {
		_ = co.Access.Post()
		return nil, err
	}

	err = co.State.Mutate(func(s *SharedState) error {
		s.HolderPID = co.PID
		s.LockMode = LockWrite
		return nil
	})
	if err != nil {
		_ = Release(fl)
		_ = co.Access.Post()
		return nil, err
	}
	return fl, nil
}

// waitForNoReaders blocks until ReaderCount drops to zero or ctx ends,
// re-checking OwnerWaiting on every poll so a pending owner preemption
// aborts the wait rather than starving it.
// Only non-owner coordinators abort on OwnerWaiting; the owner's own wait
// runs with the flag set.
func waitForNoReaders(ctx context.Context, co *Coordinator, user string) error {
	ticker := time.NewTicker(readerPollInterval)
	defer ticker.Stop()
	for {
		view, err := co.State.View()
		if err != nil {
			return err
		}
		if co.Role != RoleOwner && view.OwnerWaiting {
			return &OwnerPriorityError{User: user}
		}
		if view.ReaderCount == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

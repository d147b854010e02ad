package coordinator

import (
	"context"

	"github.com/gofrs/flock"

	"github.com/nsavic/docshare/internal/audit"
)

// ReleaseRead releases a previously acquired read hold. fl is the
// handle returned by AcquireRead for an owner coordinator, or nil for a
// non-owner (whose read hold is tracked purely through
// SharedState.ReaderCount).
func ReleaseRead(ctx context.Context, co *Coordinator, fl *flock.Flock) error {
	if err := releaseRead(ctx, co, fl); err != nil {
		return err
	}
	co.emitAudit(audit.EventReleaseRead, "", nil)
	return nil
}

func releaseRead(ctx context.Context, co *Coordinator, fl *flock.Flock) error {
	if co.Role == RoleOwner {
		if err := Release(fl); err != nil {
			return err
		}
		return co.State.Mutate(func(s *SharedState) error {
			if s.HolderPID == co.PID {
				s.HolderPID = 0
				s.LockMode = LockNone
			}
			return nil
		})
	}

	if err := co.Access.Wait(ctx); err != nil {
		return err
	}
	defer func() { _ = co.Access.Post() }()

	return co.State.Mutate(func(s *SharedState) error {
		if s.ReaderCount > 0 {
			s.ReaderCount--
		}
		if s.ReaderCount == 0 && s.HolderPID == co.PID {
			s.HolderPID = 0
			s.LockMode = LockNone
		}
		return nil
	})
}

// ReleaseWrite releases a previously acquired write hold obtained from
// AcquireWrite. Non-owner coordinators additionally release the access
// gate they held for the duration of the write session. ForcedLock is
// cleared here, closing out a takeover Preempt started (§4.6 step 6);
// for a write session that never involved a takeover this is a no-op.
func ReleaseWrite(co *Coordinator, fl *flock.Flock) error {
	if err := Release(fl); err != nil {
		return err
	}

	err := co.State.Mutate(func(s *SharedState) error {
		if s.HolderPID == co.PID {
			s.HolderPID = 0
			s.LockMode = LockNone
		}
		s.ForcedLock = false
		return nil
	})

	if co.Role != RoleOwner {
		_ = co.Access.Post()
	}
	if err != nil {
		return err
	}
	co.emitAudit(audit.EventReleaseWrite, "", nil)
	return nil
}

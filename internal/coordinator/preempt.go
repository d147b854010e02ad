package coordinator

import (
	"context"
	"syscall"
	"time"

	"github.com/nsavic/docshare/internal/audit"
)

// countdownSeconds is the owner's grace period before a forced takeover,
// matching edit_document's `for (int i = 5; i >= 0; i--)` loop exactly.
const countdownSeconds = 5

// SendSave asks the editor holding the document to save its buffer. The
// original program reuses PRIORITY_SIGNAL (SIGUSR1) for this, but the
// spawned editor explicitly ignores that signal (see internal/editor),
// so here it is SIGUSR2 — a distinct channel dedicated to "please save"
// that never collides with the owner/user priority signal.
func SendSave(pid int) error {
	if pid <= 0 {
		return nil
	}
	err := syscall.Kill(pid, syscall.SIGUSR2)
	if err == syscall.ESRCH {
		return nil
	}
	return err
}

// SendTerminate asks the editor holding the document to exit.
func SendTerminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err == syscall.ESRCH {
		return nil
	}
	return err
}

// Preempt runs the owner's forced-takeover countdown against whoever
// currently holds the document, generalizing edit_document's countdown
// block in owner.c. If nobody holds the document it returns immediately.
//
// When the current holder's time budget has more than 5 seconds left,
// the full 5-second countdown runs, sending a save request at 2 seconds
// remaining and a terminate at 0. When the holder is already inside its
// last 5 seconds, Preempt simply waits out the remainder instead of
// running a redundant countdown, exactly like the original's two-branch
// "remaining_time > 5" check.
func Preempt(ctx context.Context, co *Coordinator) error {
	view, err := co.State.View()
	if err != nil {
		return err
	}
	if view.LockMode == LockNone || view.HolderPID <= 0 {
		return nil
	}

	co.Log.Info().Int("holder_pid", view.HolderPID).Msg("starting forced takeover")
	co.emitAudit(audit.EventPreemptStart, "", map[string]any{"holder_pid": view.HolderPID})

	if err := co.State.Mutate(func(s *SharedState) error {
		s.OwnerWaiting = true
		s.ForcedLock = true
		return nil
	}); err != nil {
		return err
	}

	if view.TimeLimitActive {
		remaining := int(view.TimeAllocation) - int(time.Since(view.EditStartTime).Seconds())
		if remaining <= countdownSeconds {
			wait := remaining
			if wait <= 0 {
				wait = 1
			}
			if err := sleepCtx(ctx, time.Duration(wait)*time.Second); err != nil {
				return err
			}
			if err := forceClear(co); err != nil {
				return err
			}
			co.emitAudit(audit.EventPreemptComplete, "", map[string]any{"holder_pid": view.HolderPID})
			return nil
		}
	}

	if err := co.State.Mutate(func(s *SharedState) error {
		s.CountdownActive = true
		s.CountdownValue = countdownSeconds
		return nil
	}); err != nil {
		return err
	}

	for i := countdownSeconds; i >= 0; i-- {
		if err := co.State.Mutate(func(s *SharedState) error {
			s.CountdownValue = i
			return nil
		}); err != nil {
			return err
		}

		if view.EditorPID > 0 {
			switch {
			case i == 0:
				_ = SendTerminate(view.EditorPID)
			case i <= 2:
				_ = SendSave(view.EditorPID)
			}
		}

		if err := sleepCtx(ctx, time.Second); err != nil {
			return err
		}
	}

	if err := co.State.Mutate(func(s *SharedState) error {
		s.CountdownActive = false
		return nil
	}); err != nil {
		return err
	}

	if err := forceClear(co); err != nil {
		return err
	}
	co.emitAudit(audit.EventPreemptComplete, "", map[string]any{"holder_pid": view.HolderPID})
	return sleepCtx(ctx, time.Second)
}

// forceClear bypasses the normal release path and directly zeroes the
// holder fields under the access gate, mirroring edit_document's
// sem_wait/holding_pid=0/lock_type=0/sem_post sequence. ForcedLock is
// left set by the caller (Preempt sets it at the start of the
// takeover) — it is only cleared once the owner's write session
// releases, per §4.6 step 6.
func forceClear(co *Coordinator) error {
	if err := co.Access.Wait(context.Background()); err != nil {
		return err
	}
	defer func() { _ = co.Access.Post() }()
	return co.State.Mutate(func(s *SharedState) error {
		s.HolderPID = 0
		s.LockMode = LockNone
		return nil
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

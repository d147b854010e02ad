package coordinator

import (
	"context"
	"time"

	"github.com/nsavic/docshare/internal/audit"
)

// Allocation returns the per-priority editing time budget. The original
// user.c compares `user->priority == 2` for owner and `== 1` for high —
// magic numbers that don't match shared.h's actual PRIORITY_OWNER=-1,
// PRIORITY_HIGH=0, PRIORITY_LOW=1 constants, so every non-owner session
// silently fell through to the low-priority branch. Allocation switches
// on the named Priority constants instead, so each tier gets the budget
// the original intended rather than the one its comparison bug produced.
func Allocation(p Priority) time.Duration {
	switch p {
	case PriorityOwner:
		return 30 * time.Second
	case PriorityHigh:
		return 10 * time.Second
	default:
		return 15 * time.Second
	}
}

// SessionResult reports why RunSession returned.
type SessionResult int

const (
	// SessionCompleted means the editor exited on its own within budget.
	SessionCompleted SessionResult = iota
	// SessionTimeExpired means the time budget ran out and the editor was terminated.
	SessionTimeExpired
	// SessionPreempted means ctx was cancelled mid-session and the editor
	// was sent a terminate. RunSession does not watch ForcedLock: when an
	// owner takeover terminates the editor, the session reports
	// SessionCompleted once the editor exits.
	SessionPreempted
	// SessionPriorityExit means a priority signal arrived mid-session and the caller chose to yield.
	SessionPriorityExit
)

func (r SessionResult) String() string {
	switch r {
	case SessionCompleted:
		return "completed"
	case SessionTimeExpired:
		return "time-expired"
	case SessionPreempted:
		return "preempted"
	case SessionPriorityExit:
		return "priority-exit"
	default:
		return "unknown"
	}
}

// sessionPollInterval mirrors the original's usleep(100000) poll cadence
// inside edit_document's waitpid(WNOHANG) loop.
const sessionPollInterval = 100 * time.Millisecond

// graceAfterExpiry is how long the editor gets to act on the save
// request before RunSession terminates it, per spec §4.7's "save then,
// after 1 s grace, terminate" expiry sequence.
const graceAfterExpiry = 1 * time.Second

// RunSession watches an editing session against its time budget,
// generalizing edit_document's waitpid(WNOHANG) polling loop (owner.c)
// and user.c's equivalent. done fires when the editor process exits on
// its own. editorPID, when > 0, is signaled with a save request once the
// budget is exhausted and a terminate graceAfterExpiry later.
//
// A priority signal observed on co (only non-owner coordinators install
// a priority listener) ends the session early with SessionPriorityExit
// after a save request to the editor.
func RunSession(ctx context.Context, co *Coordinator, budget time.Duration, editorPID int, done <-chan struct{}) SessionResult {
	start := time.Now()
	_ = co.State.Mutate(func(s *SharedState) error {
		s.EditStartTime = start
		s.TimeAllocation = int(budget.Seconds())
		s.TimeLimitActive = true
		s.EditorPID = editorPID
		return nil
	})
	defer func() {
		_ = co.State.Mutate(func(s *SharedState) error {
			s.TimeLimitActive = false
			s.EditorPID = 0
			return nil
		})
	}()

	ticker := time.NewTicker(sessionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return SessionCompleted
		case <-ctx.Done():
			_ = SendTerminate(editorPID)
			return SessionPreempted
		case <-ticker.C:
			remaining := budget - time.Since(start)

			if remaining <= 0 {
				co.Log.Info().Msg("time allocation expired, requesting save")
				_ = SendSave(editorPID)

				select {
				case <-done:
					return SessionCompleted
				case <-ctx.Done():
					_ = SendTerminate(editorPID)
					return SessionPreempted
				case <-time.After(graceAfterExpiry):
				}

				co.Log.Info().Msg("grace period expired, terminating editor")
				_ = SendTerminate(editorPID)
				co.emitAudit(audit.EventTimeBudgetExpired, "", map[string]any{"editor_pid": editorPID})
				return SessionTimeExpired
			}
			if co.PriorityTriggered() {
				co.ResetPriority()
				_ = SendSave(editorPID)
				return SessionPriorityExit
			}
		}
	}
}

package coordinator

import (
	"github.com/nsavic/docshare/internal/audit"
	"github.com/nsavic/docshare/internal/identity"
	"github.com/nsavic/docshare/internal/stale"
)

// Sweep clears a holder left behind by a process that crashed instead of
// releasing its lock through ReleaseRead/ReleaseWrite. The coordination
// root is always a single host (the document itself lives on local
// disk, same as the original program's shared memory segment), so the
// staleness candidate's host is always the current host.
//
// Unlike Preempt, Sweep never signals anyone — there is nobody left
// alive to signal. It force-clears the same way Preempt's forceClear
// does after its countdown expires.
func Sweep(co *Coordinator) (stale.Result, error) {
	view, err := co.State.View()
	if err != nil {
		return stale.Result{}, err
	}
	if view.LockMode == LockNone || view.HolderPID <= 0 {
		return stale.Result{Reason: stale.ReasonNotStale}, nil
	}

	id := identity.Current()

	result := stale.Check(stale.Candidate{Host: id.Host, PID: view.HolderPID})
	if !result.Stale {
		return result, nil
	}

	if err := forceClear(co); err != nil {
		return result, err
	}

	co.Audit.Emit(&audit.Event{
		Event: audit.EventStaleCleared,
		Host:  id.Host,
		PID:   view.HolderPID,
		Extra: map[string]any{"reason": string(result.Reason)},
	})
	co.Log.Warn().Int("stale_pid", view.HolderPID).Str("reason", string(result.Reason)).Msg("cleared stale holder")

	return result, nil
}

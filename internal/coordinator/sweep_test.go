package coordinator

import (
	"os"
	"testing"

	"github.com/nsavic/docshare/internal/stale"
)

func TestSweep_NoHolderIsNotStale(t *testing.T) {
	dir := t.TempDir() + "/coord"
	co := newTestCoordinator(t, dir, RoleOwner, 900001)

	result, err := Sweep(co)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Stale {
		t.Error("Stale = true, want false when nobody holds the document")
	}
}

func TestSweep_LiveHolderIsNotStale(t *testing.T) {
	dir := t.TempDir() + "/coord"
	co := newTestCoordinator(t, dir, RoleOwner, 900001)

	err := co.State.Mutate(func(s *SharedState) error {
		s.HolderPID = os.Getpid()
		s.LockMode = LockWrite
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	result, err := Sweep(co)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Stale {
		t.Errorf("Stale = true, want false for the live test process's own PID")
	}

	view, err := co.State.View()
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if view.HolderPID == 0 {
		t.Error("holder was cleared even though it is not stale")
	}
}

func TestSweep_DeadPIDClearsHolder(t *testing.T) {
	dir := t.TempDir() + "/coord"
	co := newTestCoordinator(t, dir, RoleOwner, 900001)

	err := co.State.Mutate(func(s *SharedState) error {
		s.HolderPID = 999999
		s.LockMode = LockWrite
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	result, err := Sweep(co)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if !result.Stale || result.Reason != stale.ReasonDeadPID {
		t.Errorf("Sweep() result = %+v, want Stale=true, Reason=dead_pid", result)
	}

	view, err := co.State.View()
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if view.HolderPID != 0 || view.LockMode != LockNone {
		t.Errorf("state after Sweep = %+v, want holder cleared", view)
	}
}

package coordinator

import (
	"os"
	"testing"
	"time"
)

func TestPrioritySignal_TriggeredAfterSignal(t *testing.T) {
	ps := ListenPriority()
	defer ps.Stop()

	if ps.Triggered() {
		t.Fatal("Triggered() = true before any signal")
	}

	if err := SendPriority(os.Getpid()); err != nil {
		t.Fatalf("SendPriority() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ps.Triggered() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !ps.Triggered() {
		t.Fatal("Triggered() = false after SendPriority to self")
	}

	ps.Reset()
	if ps.Triggered() {
		t.Fatal("Triggered() = true after Reset()")
	}
}

func TestSendPriority_DeadProcessIsNotError(t *testing.T) {
	if err := SendPriority(999999); err != nil {
		t.Fatalf("SendPriority(nonexistent pid) error = %v, want nil (ESRCH swallowed)", err)
	}
}

func TestSendPriority_NonPositivePIDIsNoop(t *testing.T) {
	if err := SendPriority(0); err != nil {
		t.Fatalf("SendPriority(0) error = %v, want nil", err)
	}
	if err := SendPriority(-1); err != nil {
		t.Fatalf("SendPriority(-1) error = %v, want nil", err)
	}
}

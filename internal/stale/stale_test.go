package stale

import (
	"os"
	"runtime"
	"testing"
)

func TestIsProcessAlive_CurrentProcess(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("IsProcessAlive returned false for current process")
	}
}

func TestIsProcessAlive_NonExistent(t *testing.T) {
	if IsProcessAlive(99999999) {
		t.Error("IsProcessAlive returned true for non-existent PID 99999999")
	}
}

func TestCheck_ExpiredTTL(t *testing.T) {
	result := Check(Candidate{Host: "otherhost", PID: 12345, Expired: true})
	if !result.Stale {
		t.Error("Check should return stale for expired candidate")
	}
	if result.Reason != ReasonExpired {
		t.Errorf("Check should return ReasonExpired, got %v", result.Reason)
	}
}

func TestCheck_DeadPID_SameHost(t *testing.T) {
	hostname, err := os.Hostname()
	if err != nil {
		t.Skip("Cannot get hostname")
	}

	result := Check(Candidate{Host: hostname, PID: 99999999})
	if !result.Stale {
		t.Error("Check should return stale for dead PID on same host")
	}
	if result.Reason != ReasonDeadPID {
		t.Errorf("Check should return ReasonDeadPID, got %v", result.Reason)
	}
}

func TestCheck_AlivePID_SameHost(t *testing.T) {
	hostname, err := os.Hostname()
	if err != nil {
		t.Skip("Cannot get hostname")
	}

	result := Check(Candidate{Host: hostname, PID: os.Getpid()})
	if result.Stale {
		t.Error("Check should not return stale for alive PID on same host")
	}
	if result.Reason != ReasonNotStale {
		t.Errorf("Check should return ReasonNotStale, got %v", result.Reason)
	}
}

func TestCheck_CrossHost_NotExpired(t *testing.T) {
	result := Check(Candidate{Host: "definitely-not-this-host.example.com", PID: 12345})
	if result.Stale {
		t.Error("Check should not return stale for cross-host candidate without expiry")
	}
	if result.Reason != ReasonUnknown {
		t.Errorf("Check should return ReasonUnknown for cross-host, got %v", result.Reason)
	}
}

func TestCheck_CrossHost_Expired(t *testing.T) {
	result := Check(Candidate{Host: "definitely-not-this-host.example.com", PID: 12345, Expired: true})
	if !result.Stale {
		t.Error("Check should return stale for cross-host candidate with expiry set")
	}
	if result.Reason != ReasonExpired {
		t.Errorf("Check should return ReasonExpired, got %v", result.Reason)
	}
}

func TestCheck_RecycledPID(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("start time not supported on Windows")
	}

	hostname, err := os.Hostname()
	if err != nil {
		t.Skip("Cannot get hostname")
	}

	result := Check(Candidate{Host: hostname, PID: os.Getpid(), PIDStartNS: 1})
	if !result.Stale {
		t.Error("Check should return stale for recycled PID (different start time)")
	}
	if result.Reason != ReasonDeadPID {
		t.Errorf("Check should return ReasonDeadPID, got %v", result.Reason)
	}
}

func TestCheck_SamePID_SameStartTime(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("start time not supported on Windows")
	}

	hostname, err := os.Hostname()
	if err != nil {
		t.Skip("Cannot get hostname")
	}

	startNS, err := GetProcessStartTime(os.Getpid())
	if err != nil {
		t.Fatalf("GetProcessStartTime: %v", err)
	}

	result := Check(Candidate{Host: hostname, PID: os.Getpid(), PIDStartNS: startNS})
	if result.Stale {
		t.Error("Check should not return stale when PID and start time match")
	}
	if result.Reason != ReasonNotStale {
		t.Errorf("Check should return ReasonNotStale, got %v", result.Reason)
	}
}

func TestCheck_NoPIDStartNS_Degradation(t *testing.T) {
	hostname, err := os.Hostname()
	if err != nil {
		t.Skip("Cannot get hostname")
	}

	result := Check(Candidate{Host: hostname, PID: os.Getpid()})
	if result.Stale {
		t.Error("Check should not return stale for candidate with PIDStartNS=0 and an alive PID")
	}
	if result.Reason != ReasonNotStale {
		t.Errorf("Check should return ReasonNotStale, got %v", result.Reason)
	}
}

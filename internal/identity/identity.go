// Package identity resolves the identity of the current coordination process.
package identity

import (
	"fmt"
	"hash/fnv"
	"os"
	"os/user"
	"sync"

	"github.com/nsavic/docshare/internal/stale"
)

// EnvOwner overrides the resolved OS username, useful in tests and
// containerized environments where os/user.Current is unreliable.
const EnvOwner = "DOCSHARE_OWNER"

// EnvAgentID overrides the auto-generated agent identifier.
const EnvAgentID = "DOCSHARE_AGENT_ID"

// Identity identifies the process participating in document coordination.
type Identity struct {
	Owner   string
	Host    string
	PID     int
	AgentID string
}

// Current returns the identity of the calling process.
func Current() Identity {
	return Identity{
		Owner:   getOwner(),
		Host:    getHost(),
		PID:     os.Getpid(),
		AgentID: getAgentID(),
	}
}

func getOwner() string {
	if owner := os.Getenv(EnvOwner); owner != "" {
		return owner
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func getHost() string {
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

var (
	autoAgentID     string
	autoAgentIDOnce sync.Once
)

func getAgentID() string {
	if id := os.Getenv(EnvAgentID); id != "" {
		return id
	}
	autoAgentIDOnce.Do(func() {
		autoAgentID = generateAgentID()
	})
	return autoAgentID
}

// generateAgentID produces a short deterministic ID from the process's
// PID and start time. Format: "agent-XXXX" (4 hex digits).
func generateAgentID() string {
	pid := os.Getpid()
	startNS, err := stale.GetProcessStartTime(pid)
	input := fmt.Sprintf("%d-%d", pid, startNS)
	if err != nil {
		input = fmt.Sprintf("%d", pid)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(input))
	return fmt.Sprintf("agent-%04x", h.Sum32()&0xFFFF)
}

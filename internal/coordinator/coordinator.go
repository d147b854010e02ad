package coordinator

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/nsavic/docshare/internal/audit"
	"github.com/nsavic/docshare/internal/identity"
	"github.com/nsavic/docshare/internal/root"
)

// Role distinguishes the single owner coordinator from the many
// non-owner (user) coordinators, mirroring the original program's
// `is_owner` branch inside initialize_synchronization.
type Role int

const (
	RoleOwner Role = iota
	RoleUser
)

func (r Role) String() string {
	if r == RoleOwner {
		return "owner"
	}
	return "user"
}

// Coordinator is the single handle through which a process touches the
// shared document's lock state, gates and file-range lock. There is no
// package-level mutable state anywhere in this package; every operation
// takes a *Coordinator explicitly, constructed once in main() and
// threaded through the whole call tree.
type Coordinator struct {
	Root   string
	Role   Role
	PID    int
	State  *Store
	Access *Gate
	Owner  *Gate
	Doc    *DocLock
	Audit  *audit.Writer
	Log    zerolog.Logger

	priority *PrioritySignal
}

// New constructs a Coordinator rooted at the given coordination
// directory. It is the Go analogue of initialize_synchronization: the
// owner role additionally ensures the on-disk layout exists and installs
// no signal listener (the owner only ever sends PRIORITY_SIGNAL); a user
// role installs the PrioritySignal listener so it can observe owner
// preemption requests.
func New(r string, role Role, log zerolog.Logger) (*Coordinator, error) {
	if role == RoleOwner {
		if err := root.EnsureDirs(r); err != nil {
			return nil, fmt.Errorf("ensure coordination dirs: %w", err)
		}
	}

	co := &Coordinator{
		Root:   r,
		Role:   role,
		PID:    os.Getpid(),
		State:  NewStore(root.StatePath(r)),
		Access: NewGate(root.AccessGatePath(r)),
		Owner:  NewGate(root.OwnerGatePath(r)),
		Doc:    NewDocLock(root.DocumentPath(r)),
		Audit:  audit.NewWriter(r),
		Log:    log.With().Str("role", role.String()).Logger(),
	}

	if role == RoleUser {
		co.priority = ListenPriority()
	}

	return co, nil
}

// PriorityTriggered reports whether the owner has signalled priority
// since the last Reset. Always false for an owner coordinator, which
// never installs a listener.
func (c *Coordinator) PriorityTriggered() bool {
	if c.priority == nil {
		return false
	}
	return c.priority.Triggered()
}

// ResetPriority clears the priority-triggered flag.
func (c *Coordinator) ResetPriority() {
	if c.priority != nil {
		c.priority.Reset()
	}
}

// Close releases resources held by the coordinator. It does not remove
// any on-disk state — cleanup of stale holders is sweep.go's job.
func (c *Coordinator) Close() error {
	if c.priority != nil {
		c.priority.Stop()
	}
	return nil
}

// emitAudit appends an audit event carrying this coordinator's identity,
// sparing every call site from re-deriving host/PID.
func (c *Coordinator) emitAudit(event, user string, extra map[string]any) {
	c.Audit.Emit(&audit.Event{
		Event: event,
		User:  user,
		Host:  identity.Current().Host,
		PID:   c.PID,
		Extra: extra,
	})
}

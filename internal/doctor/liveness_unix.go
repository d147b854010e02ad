//go:build unix

package doctor

import "golang.org/x/sys/unix"

// processAlive reports whether pid still exists, using the portable
// kill(pid, 0) probe: no error or EPERM means the process exists (EPERM
// just means we can't signal it), ESRCH means it's gone. Mirrors
// internal/stale's syscall.Kill probe but goes through golang.org/x/sys/unix
// so the Errno comparison is the actively maintained one rather than the
// frozen syscall package's.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

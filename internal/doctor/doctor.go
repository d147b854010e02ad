// Package doctor provides health check utilities for validating a
// docshare coordination root before an owner or user session starts.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nsavic/docshare/internal/directory"
	"github.com/nsavic/docshare/internal/root"
)

// Status represents the result of a health check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// CheckResult contains the result of a single health check.
type CheckResult struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Overall computes the overall status from multiple check results.
// Returns "fail" if any check failed, "warn" if any warned, "ok" otherwise.
func Overall(results []CheckResult) Status {
	for _, r := range results {
		if r.Status == StatusFail {
			return StatusFail
		}
	}
	for _, r := range results {
		if r.Status == StatusWarn {
			return StatusWarn
		}
	}
	return StatusOK
}

// Test seams: CheckWritable's error branches are hard to trigger
// portably (e.g. a write that fails after an O_EXCL create succeeds),
// so the actual syscalls are indirected through package vars that
// tests can override.
var (
	writeStringFn = func(f *os.File, s string) error { _, err := f.WriteString(s); return err }
	syncFileFn    = func(f *os.File) error { return f.Sync() }
	removeFileFn  = os.Remove
)

// CheckWritable verifies the coordination root is writable by creating
// and removing a test file, creating the directory first if needed.
func CheckWritable(dir string) CheckResult {
	result := CheckResult{Name: "writable"}

	if err := os.MkdirAll(dir, 0700); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create directory: %v", err)
		return result
	}

	testFile := filepath.Join(dir, ".docshare-doctor-test")
	f, err := os.OpenFile(testFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) //nolint:gosec // G304
	if err != nil {
		if os.IsExist(err) {
			_ = removeFileFn(testFile)
			f, err = os.OpenFile(testFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) //nolint:gosec // G304
		}
		if err != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("cannot create test file: %v", err)
			return result
		}
	}

	if err := writeStringFn(f, "docshare doctor test"); err != nil {
		_ = f.Close()
		_ = removeFileFn(testFile)
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to test file: %v", err)
		return result
	}
	if err := syncFileFn(f); err != nil {
		_ = f.Close()
		_ = removeFileFn(testFile)
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot sync test file: %v", err)
		return result
	}
	_ = f.Close()

	if err := removeFileFn(testFile); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot remove test file: %v", err)
		return result
	}

	result.Status = StatusOK
	return result
}

// CheckClock verifies the system clock is within a reasonable range. A
// clock far from plausible skews the owner's 5-second countdown and the
// history log's recorded timestamps.
func CheckClock() CheckResult {
	return checkClockYear(time.Now().Year())
}

func checkClockYear(year int) CheckResult {
	result := CheckResult{Name: "clock"}

	if year < 2024 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("system clock appears to be in the past (year %d)", year)
		return result
	}
	if year > 2100 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("system clock appears to be far in the future (year %d)", year)
		return result
	}

	result.Status = StatusOK
	return result
}

// CheckDocument verifies the shared document exists and is readable. A
// missing document is a warning, not a failure — the owner's first
// session can create it.
func CheckDocument(path string) CheckResult {
	result := CheckResult{Name: "document"}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Status = StatusWarn
			result.Message = fmt.Sprintf("document %s does not exist yet", path)
			return result
		}
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat document: %v", err)
		return result
	}
	if info.IsDir() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("document %s is a directory", path)
		return result
	}

	result.Status = StatusOK
	return result
}

// CheckDirectoryFile verifies the plain-text user directory file parses
// cleanly. A missing file is a warning since the owner's first session
// creates it; a present-but-corrupt file is a failure.
func CheckDirectoryFile(path string) CheckResult {
	result := CheckResult{Name: "directory_file"}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("directory file %s does not exist yet", path)
		return result
	}

	d, err := directory.Load(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot parse directory file: %v", err)
		return result
	}
	if d.Owner.PID <= 0 {
		result.Status = StatusWarn
		result.Message = "owner record has no recorded PID"
		return result
	}
	if !processAlive(d.Owner.PID) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("owner record PID %d is not running", d.Owner.PID)
		return result
	}

	result.Status = StatusOK
	return result
}

// Run executes every check against the given coordination root and
// returns them in a stable, presentation-ready order.
func Run(rootPath string) []CheckResult {
	return []CheckResult{
		CheckWritable(rootPath),
		CheckClock(),
		CheckDocument(root.DocumentPath(rootPath)),
		CheckDirectoryFile(root.DirectoryPath(rootPath)),
	}
}

package main

import (
	"io"
	"os"
	"strings"
	"testing"
)

// captureRun invokes run with the given args and stdin script, capturing
// stdout. Mirrors the teacher's captureCmd helper for subcommand functions.
func captureRun(args []string, stdinScript string) (string, int) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	code := run(args, strings.NewReader(stdinScript))

	_ = w.Close()
	os.Stdout = oldStdout

	out, _ := io.ReadAll(r)
	return string(out), code
}

// setupOwnerRoot points DOCSHARE_ROOT at a fresh temp directory for the
// duration of the test.
func setupOwnerRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DOCSHARE_ROOT", dir)
	return dir
}

package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/nsavic/docshare/internal/coordinator"
	"github.com/nsavic/docshare/internal/directory"
	"github.com/nsavic/docshare/internal/root"
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

// setupUserRoot points DOCSHARE_ROOT at a fresh temp directory seeded with
// a directory file carrying the given user, and an empty shared document.
func setupUserRoot(t *testing.T, name string, priority coordinator.Priority, access coordinator.AccessMode) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(root.EnvRoot, dir)

	docPath := root.DocumentPath(dir)
	if err := os.WriteFile(docPath, []byte("hello\n"), 0600); err != nil {
		t.Fatalf("WriteFile document error = %v", err)
	}

	d := directory.New(docPath, 1)
	if err := d.Add(name, priority, access); err != nil {
		t.Fatalf("Add(%q) error = %v", name, err)
	}
	if err := d.Save(root.DirectoryPath(dir)); err != nil {
		t.Fatalf("Save directory error = %v", err)
	}
	return dir
}

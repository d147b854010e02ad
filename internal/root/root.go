// Package root handles discovery of the docshare coordination root directory.
package root

import (
	"os"
	"path/filepath"
)

const (
	// EnvRoot overrides coordination root discovery entirely.
	EnvRoot = "DOCSHARE_ROOT"
	// DirName is the default root directory created under the current
	// working directory when DOCSHARE_ROOT is unset.
	DirName = ".docshare"

	stateFileName     = "state.json"
	accessGateName    = "access.lock"
	ownerGateName     = "owner.lock"
	auditLogName      = "audit.log"
	directoryFileName = "shared_doc_control.txt"
	historyFileName   = "history.txt"
	documentFileName  = "shared_docs.txt"
)

// Find locates the coordination root, using DOCSHARE_ROOT when set and
// falling back to .docshare/ under the current working directory.
func Find() (string, error) {
	if envRoot := os.Getenv(EnvRoot); envRoot != "" {
		return envRoot, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DirName), nil
}

// EnsureDirs creates the coordination root directory if it doesn't exist.
func EnsureDirs(root string) error {
	return os.MkdirAll(root, 0700)
}

// StatePath returns the path to the shared lock state file.
func StatePath(root string) string { return filepath.Join(root, stateFileName) }

// AccessGatePath returns the path backing the access semaphore gate.
func AccessGatePath(root string) string { return filepath.Join(root, accessGateName) }

// OwnerGatePath returns the path backing the owner-priority semaphore gate.
func OwnerGatePath(root string) string { return filepath.Join(root, ownerGateName) }

// AuditLogPath returns the path to the coordination audit log.
func AuditLogPath(root string) string { return filepath.Join(root, auditLogName) }

// DirectoryPath returns the path to the plain-text user directory file.
func DirectoryPath(root string) string { return filepath.Join(root, directoryFileName) }

// HistoryPath returns the path to the snapshot history log.
func HistoryPath(root string) string { return filepath.Join(root, historyFileName) }

// DocumentPath returns the path of the shared document. Both CLIs open
// the document at this path; a document path recorded in the user
// directory file is not consulted.
func DocumentPath(root string) string { return filepath.Join(root, documentFileName) }

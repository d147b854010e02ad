// Package directory implements the plain-text user directory file:
// the document path, the owner's record, and every registered user's
// priority, access mode and last-seen PID.
package directory

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nsavic/docshare/internal/coordinator"
)

// ErrUserNotFound is returned by Lookup/Remove/Update when no matching
// user record exists.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned by Add when the name is already registered.
var ErrUserExists = errors.New("user already exists")

// ErrCannotModifyOwner is returned by Remove/Update for the reserved
// "admin" record, which always carries PriorityOwner/AccessReadWrite.
var ErrCannotModifyOwner = errors.New("cannot modify the owner record")

// ErrInvalidPriority is returned when adding/updating a user with a
// priority other than High or Low (Owner is reserved for "admin").
var ErrInvalidPriority = errors.New("invalid priority: must be high or low")

// ErrInvalidAccessMode is returned when adding/updating a user with an
// access mode outside Read/Write/ReadWrite.
var ErrInvalidAccessMode = errors.New("invalid access mode")

// ErrDirectoryFull is returned by Add once the directory already holds
// MaxUsers non-owner records.
var ErrDirectoryFull = errors.New("directory is full")

// MaxUsers is the largest number of non-owner users a directory may
// hold, matching original_source/shared.h's MAX_USERS.
const MaxUsers = 20

// ownerName is the reserved record name for the document owner,
// matching original_source/owner.c's hardcoded "admin".
const ownerName = "admin"

// User is one record in the directory file.
type User struct {
	Name     string
	Priority coordinator.Priority
	Access   coordinator.AccessMode
	PID      int
}

// Directory is the in-memory form of the plain-text directory file:
// line 1 is the document path, line 2 is the owner record, line 3 is
// the user count, followed by that many user record lines.
type Directory struct {
	DocPath string
	Owner   User
	Users   []User
}

// New creates a fresh directory with just the owner record, generalizing
// original_source/owner.c's initialize_control_file for the
// control-file-does-not-exist-yet branch.
func New(docPath string, ownerPID int) *Directory {
	return &Directory{
		DocPath: docPath,
		Owner: User{
			Name:     ownerName,
			Priority: coordinator.PriorityOwner,
			Access:   coordinator.AccessReadWrite,
			PID:      ownerPID,
		},
	}
}

// Load parses the directory file at path, generalizing
// original_source/owner.c's read_control_file.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is controlled by root discovery
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	if !scanner.Scan() {
		return nil, fmt.Errorf("directory file %s: missing document path line", path)
	}
	docPath := scanner.Text()

	if !scanner.Scan() {
		return nil, fmt.Errorf("directory file %s: missing owner record line", path)
	}
	owner, err := parseUserLine(scanner.Text())
	if err != nil {
		return nil, fmt.Errorf("directory file %s: owner record: %w", path, err)
	}
	owner.Priority = coordinator.PriorityOwner

	if !scanner.Scan() {
		return nil, fmt.Errorf("directory file %s: missing user count line", path)
	}
	var count int
	if _, err := fmt.Sscanf(scanner.Text(), "%d", &count); err != nil {
		return nil, fmt.Errorf("directory file %s: user count: %w", path, err)
	}

	users := make([]User, 0, count)
	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			break
		}
		u, err := parseUserLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("directory file %s: user record %d: %w", path, i, err)
		}
		users = append(users, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Directory{DocPath: docPath, Owner: owner, Users: users}, nil
}

func parseUserLine(line string) (User, error) {
	var (
		name           string
		priority, mode int
		pid            int
	)
	if _, err := fmt.Sscanf(line, "%s %d %d %d", &name, &priority, &mode, &pid); err != nil {
		return User{}, fmt.Errorf("malformed record %q: %w", line, err)
	}
	return User{
		Name:     name,
		Priority: coordinator.Priority(priority),
		Access:   coordinator.AccessMode(mode),
		PID:      pid,
	}, nil
}

// Save writes the directory back to path atomically, generalizing
// original_source/owner.c's write_control_file.
func (d *Directory) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".directory-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	w := bufio.NewWriter(tmp)
	if _, err := fmt.Fprintf(w, "%s\n", d.DocPath); err != nil {
		return err
	}
	d.Owner.Priority = coordinator.PriorityOwner
	if err := writeUserLine(w, d.Owner); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d\n", len(d.Users)); err != nil {
		return err
	}
	for _, u := range d.Users {
		if err := writeUserLine(w, u); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func writeUserLine(w *bufio.Writer, u User) error {
	_, err := fmt.Fprintf(w, "%s %d %d %d\n", u.Name, int(u.Priority), int(u.Access), u.PID)
	return err
}

// Lookup finds a user record by name (including the owner record),
// generalizing original_source/user.c's find_user.
func (d *Directory) Lookup(name string) (User, bool) {
	if name == ownerName || name == d.Owner.Name {
		return d.Owner, true
	}
	for _, u := range d.Users {
		if u.Name == name {
			return u, true
		}
	}
	return User{}, false
}

// Add registers a new user. Priority must be High or Low; access mode
// must be one of Read/Write/ReadWrite.
func (d *Directory) Add(name string, priority coordinator.Priority, access coordinator.AccessMode) error {
	if err := ensureNameHasNoSpaces(name); err != nil {
		return err
	}
	if priority != coordinator.PriorityHigh && priority != coordinator.PriorityLow {
		return ErrInvalidPriority
	}
	if !validAccessMode(access) {
		return ErrInvalidAccessMode
	}
	if _, ok := d.Lookup(name); ok {
		return ErrUserExists
	}
	if len(d.Users) >= MaxUsers {
		return ErrDirectoryFull
	}
	d.Users = append(d.Users, User{Name: name, Priority: priority, Access: access})
	return nil
}

// Remove deletes a user record. The owner record can never be removed.
func (d *Directory) Remove(name string) error {
	if name == ownerName || name == d.Owner.Name {
		return ErrCannotModifyOwner
	}
	for i, u := range d.Users {
		if u.Name == name {
			d.Users = append(d.Users[:i], d.Users[i+1:]...)
			return nil
		}
	}
	return ErrUserNotFound
}

// Update changes a user's priority and access mode. The owner record
// can never be updated.
func (d *Directory) Update(name string, priority coordinator.Priority, access coordinator.AccessMode) error {
	if name == ownerName || name == d.Owner.Name {
		return ErrCannotModifyOwner
	}
	if priority != coordinator.PriorityHigh && priority != coordinator.PriorityLow {
		return ErrInvalidPriority
	}
	if !validAccessMode(access) {
		return ErrInvalidAccessMode
	}
	for i, u := range d.Users {
		if u.Name == name {
			d.Users[i].Priority = priority
			d.Users[i].Access = access
			return nil
		}
	}
	return ErrUserNotFound
}

// SetPID records the last-seen PID for a user (including the owner),
// used when a CLI process starts up.
func (d *Directory) SetPID(name string, pid int) error {
	if name == ownerName || name == d.Owner.Name {
		d.Owner.PID = pid
		return nil
	}
	for i, u := range d.Users {
		if u.Name == name {
			d.Users[i].PID = pid
			return nil
		}
	}
	return ErrUserNotFound
}

// List returns every record, owner first, in directory-file order.
func (d *Directory) List() []User {
	all := make([]User, 0, len(d.Users)+1)
	all = append(all, d.Owner)
	all = append(all, d.Users...)
	return all
}

func validAccessMode(a coordinator.AccessMode) bool {
	return a == coordinator.AccessRead || a == coordinator.AccessWrite || a == coordinator.AccessReadWrite
}

// ensureNameHasNoSpaces guards against writing a record that would
// desync the fixed-field plain-text format on the next Load.
func ensureNameHasNoSpaces(name string) error {
	if strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("user name %q must not contain whitespace", name)
	}
	return nil
}

// Command docowner is the privileged owner process for a docshare
// coordination root: it can view, edit and forcibly preempt the shared
// document, and administers the user directory and snapshot history.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nsavic/docshare/internal/audit"
	"github.com/nsavic/docshare/internal/coordinator"
	"github.com/nsavic/docshare/internal/directory"
	"github.com/nsavic/docshare/internal/doctor"
	"github.com/nsavic/docshare/internal/editor"
	"github.com/nsavic/docshare/internal/history"
	"github.com/nsavic/docshare/internal/identity"
	"github.com/nsavic/docshare/internal/logging"
	"github.com/nsavic/docshare/internal/root"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// backgroundSweepInterval is how often the owner process re-runs
// coordinator.Sweep in the background while the interactive menu is
// idle, catching a holder left behind by a crashed session without
// waiting for the next menu action.
const backgroundSweepInterval = 30 * time.Second

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	exitOK    = 0
	exitError = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin))
}

func run(args []string, stdin io.Reader) int {
	fs := flag.NewFlagSet("docowner", flag.ExitOnError)
	doctorFlag := fs.Bool("doctor", false, "run health checks against the coordination root and exit")
	versionFlag := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(args)

	if *versionFlag {
		fmt.Printf("docowner %s (commit: %s, built: %s)\n", version, commit, date)
		return exitOK
	}

	rootPath, err := root.Find()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	if *doctorFlag {
		return runDoctor(rootPath)
	}

	log := logging.New("docowner")

	co, err := coordinator.New(rootPath, coordinator.RoleOwner, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	defer func() { _ = co.Close() }()

	if _, err := coordinator.Sweep(co); err != nil {
		log.Warn().Err(err).Msg("stale sweep failed")
	}

	docPath := root.DocumentPath(rootPath)
	dirPath := root.DirectoryPath(rootPath)
	historyPath := root.HistoryPath(rootPath)

	if err := ensureDocumentExists(docPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	dir, err := loadOrInitDirectory(dirPath, docPath, co.PID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	_ = dir.SetPID("admin", co.PID)
	if err := dir.Save(dirPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	fmt.Println("Shared document verified or created.")
	fmt.Println("Control file initialized with admin user.")

	fmt.Printf("Owner process started with PID: %d\n", co.PID)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	s := &ownerSession{
		co:          co,
		dir:         dir,
		dirPath:     dirPath,
		docPath:     docPath,
		historyPath: historyPath,
		log:         log,
		in:          bufio.NewScanner(stdin),
		stateSem:    semaphore.NewWeighted(1),
	}
	go s.runBackgroundSweep(bgCtx)
	s.loop()
	return exitOK
}

// runBackgroundSweep periodically clears a holder left behind by a
// crashed session while the owner's menu loop sits idle waiting for
// input. It acquires stateSem around each sweep so it never races a
// menu action that is concurrently mutating co's coordination state.
func (s *ownerSession) runBackgroundSweep(ctx context.Context) {
	ticker := time.NewTicker(backgroundSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.stateSem.Acquire(ctx, 1); err != nil {
				return
			}
			if _, err := coordinator.Sweep(s.co); err != nil {
				s.log.Warn().Err(err).Msg("background sweep failed")
			}
			s.stateSem.Release(1)
		}
	}
}

func ensureDocumentExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, nil, 0600)
}

func loadOrInitDirectory(dirPath, docPath string, ownerPID int) (*directory.Directory, error) {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return directory.New(docPath, ownerPID), nil
	}
	return directory.Load(dirPath)
}

func runDoctor(rootPath string) int {
	results := doctor.Run(rootPath)
	overall := doctor.Overall(results)

	fmt.Println("docowner doctor")
	fmt.Println()
	for _, r := range results {
		printCheck(r)
	}
	fmt.Println()
	fmt.Printf("Result: %s\n", overallDescription(overall))

	if overall == doctor.StatusFail {
		return exitError
	}
	return exitOK
}

func printCheck(r doctor.CheckResult) {
	var marker string
	switch r.Status {
	case doctor.StatusOK:
		marker = "[OK]"
	case doctor.StatusWarn:
		marker = "[WARN]"
	case doctor.StatusFail:
		marker = "[FAIL]"
	}
	fmt.Printf("  %-6s %s\n", marker, r.Name)
	if r.Message != "" {
		fmt.Printf("         %s\n", r.Message)
	}
}

func overallDescription(s doctor.Status) string {
	switch s {
	case doctor.StatusOK:
		return "PASS"
	case doctor.StatusWarn:
		return "PASS with warnings"
	case doctor.StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// ownerSession holds the running state of the interactive owner menu.
type ownerSession struct {
	co          *coordinator.Coordinator
	dir         *directory.Directory
	dirPath     string
	docPath     string
	historyPath string
	log         zerolog.Logger
	in          *bufio.Scanner

	// stateSem serializes menu-driven access to co/dir against the
	// background sweep goroutine; a weighted semaphore of size 1 behaves
	// as a plain mutex.
	stateSem *semaphore.Weighted
}

func (s *ownerSession) loop() {
	for {
		displayOwnerMenu()
		choice, ok := s.readChoice()
		if !ok {
			return
		}

		_ = s.stateSem.Acquire(context.Background(), 1)
		switch choice {
		case 1:
			s.viewDocument()
		case 2:
			s.editDocument()
		case 3:
			s.addUser()
		case 4:
			s.removeUser()
		case 5:
			s.updateUser()
		case 6:
			s.listUsers()
		case 7:
			s.pushHistory()
		case 8:
			s.popHistory()
		case 9:
			s.viewHistory()
		case 10:
			s.stateSem.Release(1)
			fmt.Println("Exiting owner program.")
			return
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
		s.stateSem.Release(1)
	}
}

func displayOwnerMenu() {
	fmt.Println()
	fmt.Println("=== Document Sharing System (Owner/Admin) ===")
	fmt.Println("1. View document (read)")
	fmt.Println("2. Edit document (write)")
	fmt.Println("3. Add user")
	fmt.Println("4. Remove user")
	fmt.Println("5. Update user access")
	fmt.Println("6. List all users")
	fmt.Println("7. Push History")
	fmt.Println("8. POP History")
	fmt.Println("9. View History Log")
	fmt.Println("10. Exit")
	fmt.Print("Enter your choice: ")
}

func (s *ownerSession) readChoice() (int, bool) {
	if !s.in.Scan() {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s.in.Text()))
	if err != nil {
		return -1, true
	}
	return n, true
}

// emitAudit appends an administrative audit event (user add/remove/update,
// history push/pop) carrying this session's identity.
func (s *ownerSession) emitAudit(event, user string) {
	s.co.Audit.Emit(&audit.Event{
		Event: event,
		User:  user,
		Host:  identity.Current().Host,
		PID:   s.co.PID,
	})
}

func (s *ownerSession) readLine(prompt string) (string, bool) {
	fmt.Print(prompt)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func (s *ownerSession) viewDocument() {
	ctx, cancel := signalContext()
	defer cancel()

	fl, err := coordinator.AcquireRead(ctx, s.co, "admin")
	if err != nil {
		fmt.Printf("could not acquire read access: %v\n", err)
		return
	}
	defer func() { _ = coordinator.ReleaseRead(context.Background(), s.co, fl) }()

	data, err := os.ReadFile(s.docPath) //nolint:gosec // G304: path is controlled by root discovery
	if err != nil {
		fmt.Printf("error reading document: %v\n", err)
		return
	}
	fmt.Println()
	fmt.Println("--- Document Content ---")
	fmt.Print(string(data))
	fmt.Println()
	fmt.Println("--- End of Document ---")
}

func (s *ownerSession) editDocument() {
	ctx, cancel := signalContext()
	defer cancel()

	if err := coordinator.Preempt(ctx, s.co); err != nil {
		fmt.Printf("takeover aborted: %v\n", err)
		return
	}

	fl, err := coordinator.AcquireWrite(ctx, s.co, "admin")
	if err != nil {
		fmt.Printf("could not acquire write access: %v\n", err)
		return
	}
	defer func() {
		if err := coordinator.ReleaseWrite(s.co, fl); err != nil {
			s.log.Warn().Err(err).Msg("release write failed")
		}
	}()

	budget := coordinator.Allocation(coordinator.PriorityOwner)
	fmt.Printf("Opening editor (Time allocation: %d seconds)...\n", int(budget.Seconds()))

	sess, err := editor.Spawn(s.docPath)
	if err != nil {
		fmt.Printf("failed to start editor: %v\n", err)
		return
	}

	result := coordinator.RunSession(ctx, s.co, budget, sess.PID(), sess.Done())
	switch result {
	case coordinator.SessionTimeExpired:
		fmt.Printf("\n[!] Time allocation (%d seconds) has expired.\n", int(budget.Seconds()))
	case coordinator.SessionPreempted:
		fmt.Println("\n[!] Editing interrupted.")
	}

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		termCtx, termCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = sess.Terminate(termCtx)
		termCancel()
	}
	fmt.Println("\nDocument editing completed.")
}

func (s *ownerSession) addUser() {
	name, ok := s.readLine("User name: ")
	if !ok || name == "" {
		return
	}
	priority, ok := s.readPriority()
	if !ok {
		return
	}
	access, ok := s.readAccess()
	if !ok {
		return
	}
	if err := s.dir.Add(name, priority, access); err != nil {
		fmt.Printf("could not add user: %v\n", err)
		return
	}
	if err := s.dir.Save(s.dirPath); err != nil {
		fmt.Printf("could not save directory: %v\n", err)
		return
	}
	s.emitAudit(audit.EventUserAdded, name)
	fmt.Printf("User '%s' added.\n", name)
}

func (s *ownerSession) removeUser() {
	name, ok := s.readLine("User name to remove: ")
	if !ok || name == "" {
		return
	}
	if err := s.dir.Remove(name); err != nil {
		fmt.Printf("could not remove user: %v\n", err)
		return
	}
	if err := s.dir.Save(s.dirPath); err != nil {
		fmt.Printf("could not save directory: %v\n", err)
		return
	}
	s.emitAudit(audit.EventUserRemoved, name)
	fmt.Printf("User '%s' removed.\n", name)
}

func (s *ownerSession) updateUser() {
	name, ok := s.readLine("User name to update: ")
	if !ok || name == "" {
		return
	}
	priority, ok := s.readPriority()
	if !ok {
		return
	}
	access, ok := s.readAccess()
	if !ok {
		return
	}
	if err := s.dir.Update(name, priority, access); err != nil {
		fmt.Printf("could not update user: %v\n", err)
		return
	}
	if err := s.dir.Save(s.dirPath); err != nil {
		fmt.Printf("could not save directory: %v\n", err)
		return
	}
	s.emitAudit(audit.EventUserUpdated, name)
	fmt.Printf("User '%s' updated.\n", name)
}

func (s *ownerSession) listUsers() {
	fmt.Println()
	fmt.Println("--- Registered Users ---")
	for _, u := range s.dir.List() {
		fmt.Printf("%-12s priority=%-6s access=%-10s pid=%d\n", u.Name, u.Priority, u.Access, u.PID)
	}
}

func (s *ownerSession) pushHistory() {
	if err := history.Push(s.historyPath, s.docPath, time.Now()); err != nil {
		fmt.Printf("push failed: %v\n", err)
		return
	}
	s.emitAudit(audit.EventPush, "admin")
	fmt.Println("Snapshot pushed to history.")
}

func (s *ownerSession) popHistory() {
	if err := history.Pop(s.historyPath, s.docPath); err != nil {
		fmt.Printf("pop failed: %v\n", err)
		return
	}
	s.emitAudit(audit.EventPop, "admin")
	fmt.Println("Document restored from last snapshot.")
}

func (s *ownerSession) viewHistory() {
	fmt.Println()
	fmt.Println("--- History Log ---")
	if err := history.List(s.historyPath, os.Stdout); err != nil {
		fmt.Printf("%v\n", err)
	}
}

func (s *ownerSession) readPriority() (coordinator.Priority, bool) {
	for {
		line, ok := s.readLine("Priority (0=high, 1=low): ")
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("invalid priority")
			continue
		}
		p := coordinator.Priority(n)
		if p != coordinator.PriorityHigh && p != coordinator.PriorityLow {
			fmt.Println("priority must be 0 (high) or 1 (low)")
			continue
		}
		return p, true
	}
}

func (s *ownerSession) readAccess() (coordinator.AccessMode, bool) {
	for {
		line, ok := s.readLine("Access (1=read, 2=write, 3=read-write): ")
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("invalid access mode")
			continue
		}
		a := coordinator.AccessMode(n)
		if a != coordinator.AccessRead && a != coordinator.AccessWrite && a != coordinator.AccessReadWrite {
			fmt.Println("access must be 1, 2 or 3")
			continue
		}
		return a, true
	}
}

// Command docuser is the regular user process for a docshare
// coordination root: it looks up its caller in the user directory and
// presents a view/edit menu filtered by that user's access mode.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nsavic/docshare/internal/coordinator"
	"github.com/nsavic/docshare/internal/directory"
	"github.com/nsavic/docshare/internal/editor"
	"github.com/nsavic/docshare/internal/logging"
	"github.com/nsavic/docshare/internal/root"
)

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
	fs := flag.NewFlagSet("docuser", flag.ExitOnError)
	versionFlag := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(args)

	if *versionFlag {
		fmt.Printf("docuser %s (commit: %s, built: %s)\n", version, commit, date)
		return exitOK
	}

	positional := fs.Args()
	if len(positional) < 1 {
		fmt.Fprintf(os.Stderr, "usage: docuser <username>\n")
		return exitError
	}
	username := positional[0]

	rootPath, err := root.Find()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	dirPath := root.DirectoryPath(rootPath)
	dir, err := directory.Load(dirPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not load user directory: %v\n", err)
		return exitError
	}

	user, ok := dir.Lookup(username)
	if !ok {
		fmt.Printf("User '%s' not found or doesn't have access.\n", username)
		return exitError
	}

	log := logging.New("docuser")

	co, err := coordinator.New(rootPath, coordinator.RoleUser, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	defer func() { _ = co.Close() }()

	_ = dir.SetPID(username, co.PID)
	_ = dir.Save(dirPath)

	fmt.Printf("Welcome, %s!\n", user.Name)
	fmt.Printf("Access type: %s\n", user.Access)
	fmt.Printf("Priority: %s\n", user.Priority)

	s := &userSession{
		co:      co,
		user:    user,
		docPath: root.DocumentPath(rootPath),
		in:      bufio.NewScanner(stdin),
	}
	s.loop()
	return exitOK
}

type userSession struct {
	co      *coordinator.Coordinator
	user    directory.User
	docPath string
	in      *bufio.Scanner
}

func (s *userSession) loop() {
	for {
		s.displayMenu()
		choice, ok := s.readChoice()
		if !ok {
			return
		}
		switch {
		case choice == 1 && s.user.Access.CanRead():
			s.viewDocument()
		case choice == 2 && s.user.Access.CanWrite():
			s.editDocument()
		case choice == 3:
			fmt.Println("Exiting program.")
			return
		case choice == 1:
			fmt.Println("You don't have read access to this document.")
		case choice == 2:
			fmt.Println("You don't have write access to this document.")
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

func (s *userSession) displayMenu() {
	fmt.Println()
	fmt.Println("=== Document Access Menu ===")
	if s.user.Access.CanRead() {
		fmt.Println("1. View document")
	}
	if s.user.Access.CanWrite() {
		fmt.Println("2. Edit document")
	}
	fmt.Println("3. Exit")
	fmt.Print("Enter your choice: ")
}

func (s *userSession) readChoice() (int, bool) {
	if !s.in.Scan() {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s.in.Text()))
	if err != nil {
		return -1, true
	}
	return n, true
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func (s *userSession) viewDocument() {
	if _, err := os.Stat(s.docPath); os.IsNotExist(err) {
		fmt.Println("Error: Shared document doesn't exist. Ask owner to create it.")
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("User '%s' is reading the document...\n", s.user.Name)
	if _, err := coordinator.AcquireRead(ctx, s.co, s.user.Name); err != nil {
		if isOwnerPriority(err) {
			fmt.Println("Owner is currently taking over the document. Please wait.")
			return
		}
		fmt.Printf("could not acquire read access: %v\n", err)
		return
	}
	defer func() { _ = coordinator.ReleaseRead(context.Background(), s.co, nil) }()

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

func (s *userSession) editDocument() {
	ctx, cancel := signalContext()
	defer cancel()

	fl, err := coordinator.AcquireWrite(ctx, s.co, s.user.Name)
	if err != nil {
		if isOwnerPriority(err) {
			fmt.Println("Owner has priority access. You are now in the queue.")
			fmt.Println("You may edit the document after the owner completes their edits.")
			return
		}
		fmt.Printf("could not acquire write access: %v\n", err)
		return
	}
	defer func() {
		if err := coordinator.ReleaseWrite(s.co, fl); err != nil {
			s.co.Log.Warn().Err(err).Msg("release write failed")
		}
	}()

	budget := coordinator.Allocation(s.user.Priority)
	fmt.Printf("Opening editor for user '%s' (Time allocation: %d seconds)...\n", s.user.Name, int(budget.Seconds()))

	sess, err := editor.Spawn(s.docPath)
	if err != nil {
		fmt.Printf("failed to start editor: %v\n", err)
		return
	}

	s.co.ResetPriority()
	result := coordinator.RunSession(ctx, s.co, budget, sess.PID(), sess.Done())

	switch result {
	case coordinator.SessionTimeExpired:
		fmt.Printf("\n[!] Time allocation (%d seconds) has expired.\n", int(budget.Seconds()))
		fmt.Println("Editor closed due to time limit expiration.")
	case coordinator.SessionPreempted, coordinator.SessionPriorityExit:
		fmt.Println("\n[!] Owner is forcing document takeover.")
		fmt.Println("Attempting to save your work...")
		fmt.Println("Editor closed due to owner priority request.")
	default:
		fmt.Printf("\nDocument editing completed by '%s'.\n", s.user.Name)
	}

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		termCtx, termCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = sess.Terminate(termCtx)
		termCancel()
	}
}

func isOwnerPriority(err error) bool {
	var opErr *coordinator.OwnerPriorityError
	return errors.As(err, &opErr)
}

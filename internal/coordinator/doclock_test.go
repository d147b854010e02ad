package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newDocFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	return path
}

func TestDocLock_SharedAllowsConcurrentReaders(t *testing.T) {
	path := newDocFixture(t)
	d1 := NewDocLock(path)
	d2 := NewDocLock(path)

	fl1, ok, err := d1.TryAcquireShared()
	if err != nil || !ok {
		t.Fatalf("d1.TryAcquireShared() = %v, %v, %v", fl1, ok, err)
	}
	defer func() { _ = Release(fl1) }()

	fl2, ok, err := d2.TryAcquireShared()
	if err != nil || !ok {
		t.Fatalf("d2.TryAcquireShared() = %v, %v, %v, want two shared locks to coexist", fl2, ok, err)
	}
	defer func() { _ = Release(fl2) }()
}

func TestDocLock_ExclusiveExcludesShared(t *testing.T) {
	path := newDocFixture(t)
	writer := NewDocLock(path)
	reader := NewDocLock(path)

	flw, ok, err := writer.TryAcquireExclusive()
	if err != nil || !ok {
		t.Fatalf("writer.TryAcquireExclusive() = %v, %v, %v", flw, ok, err)
	}
	defer func() { _ = Release(flw) }()

	_, ok, err = reader.TryAcquireShared()
	if err != nil {
		t.Fatalf("reader.TryAcquireShared() error = %v", err)
	}
	if ok {
		t.Fatal("reader.TryAcquireShared() = true, want false while writer holds exclusive lock")
	}
}

func TestDocLock_AcquireExclusiveBlocksUntilReleased(t *testing.T) {
	path := newDocFixture(t)
	first := NewDocLock(path)
	second := NewDocLock(path)

	fl1, err := first.AcquireExclusive(context.Background())
	if err != nil {
		t.Fatalf("first.AcquireExclusive() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := second.AcquireExclusive(ctx)
		done <- err
	}()

	time.Sleep(75 * time.Millisecond)
	if err := Release(fl1); err != nil {
		t.Fatalf("Release(fl1) error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second.AcquireExclusive() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second.AcquireExclusive() did not return after release")
	}
}

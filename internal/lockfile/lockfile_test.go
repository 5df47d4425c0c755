package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireWritesHolder(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("unexpected lock path %s", lock.Path())
	}
	holder := ReadHolder(lock.Path())
	if holder.PID != os.Getpid() || !holder.Running || holder.Started == "" {
		t.Errorf("unexpected holder %+v", holder)
	}
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release()

	second, err := Acquire(dir)
	if err == nil {
		second.Release()
		t.Fatal("expected second Acquire to fail")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %T", err)
	}
	if lockErr.Holder.PID != os.Getpid() {
		t.Errorf("conflict must report the holder, got %+v", lockErr.Holder)
	}
	if !strings.Contains(err.Error(), "another MedicAI instance") {
		t.Errorf("unexpected message %q", err.Error())
	}
	// The holder's details survive the failed attempt.
	if ReadHolder(first.Path()).PID != os.Getpid() {
		t.Error("failed Acquire must not clobber the lock file")
	}
}

func TestReleaseAndReacquire(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed, stat err=%v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	again.Release()
}

func TestAcquireCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "medicai")
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("state directory not created: %v", err)
	}
}

func TestParseHolder(t *testing.T) {
	tests := []struct {
		content string
		pid     int
		started string
	}{
		{"pid=1234\nstarted=2025-10-01T12:00:00Z\n", 1234, "2025-10-01T12:00:00Z"},
		{"pid=42", 42, ""},
		{"  pid=7  \n", 7, ""},
		{"pid=abc\n", 0, ""},
		{"pid=-3\n", 0, ""},
		{"", 0, ""},
		{"garbage", 0, ""},
	}
	for _, tt := range tests {
		h := parseHolder(tt.content)
		if h.PID != tt.pid || h.Started != tt.started {
			t.Errorf("parseHolder(%q) = %+v, want pid=%d started=%q", tt.content, h, tt.pid, tt.started)
		}
	}
}

func TestHolderString(t *testing.T) {
	if got := (Holder{}).String(); got != "unknown process" {
		t.Errorf("unexpected zero holder string %q", got)
	}
	if got := (Holder{PID: 9, Running: false}).String(); !strings.Contains(got, "stale") {
		t.Errorf("stale holder should say so, got %q", got)
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Error("current process should be running")
	}
	if isProcessRunning(999999) {
		t.Error("PID 999999 should not be running")
	}
}

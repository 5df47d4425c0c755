// Package lockfile keeps two MedicAI processes from sharing one state
// directory. Both would fire the same reminders and pickup notices and race
// on the SQLite file and the whatsmeow session.
//
// The lock is an flock(2) on a file in the state directory, so the kernel
// releases it when the process dies, however it dies.
package lockfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the file created in the state directory.
const LockFileName = "medicai.lock"

// ErrLocked is matched by errors.Is when another process holds the lock.
var ErrLocked = errors.New("state directory is locked by another MedicAI process")

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Holder describes the process recorded in an existing lock file.
type Holder struct {
	PID     int
	Started string
	Running bool
}

func (h Holder) String() string {
	if h.PID <= 0 {
		return "unknown process"
	}
	state := "not running, stale lock"
	if h.Running {
		state = "running"
	}
	if h.Started != "" {
		return fmt.Sprintf("PID %d started %s (%s)", h.PID, h.Started, state)
	}
	return fmt.Sprintf("PID %d (%s)", h.PID, state)
}

// Acquire takes an exclusive, non-blocking lock on stateDir, creating the
// directory if needed.
func Acquire(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	lockPath := filepath.Join(stateDir, LockFileName)

	// O_TRUNC would wipe the holder's details before we know we own the lock.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := ReadHolder(lockPath)
		slog.Error("lockfile.Acquire: state directory already locked", "lock_path", lockPath, "holder", holder.String())
		return nil, &LockError{LockPath: lockPath, Holder: holder, Cause: err}
	}

	info := fmt.Sprintf("pid=%d\nstarted=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := writeInfo(file, info); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to write lock information to %s: %w", lockPath, err)
	}

	slog.Info("lockfile.Acquire succeeded", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath}, nil
}

func writeInfo(file *os.File, info string) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.WriteAt([]byte(info), 0); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		slog.Warn("lockfile: sync failed", "error", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove before unlocking so a new process never locks a file we then delete.
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("lockfile.Release: failed to remove lock file", "lock_path", l.path, "error", err)
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("lockfile.Release: unlock failed", "lock_path", l.path, "error", err)
	}
	err := l.file.Close()
	l.file = nil
	slog.Info("lockfile.Release succeeded", "lock_path", l.path)
	return err
}

// LockError reports a lock held by another process.
type LockError struct {
	LockPath string
	Holder   Holder
	Cause    error
}

func (e *LockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "another MedicAI instance is using this state directory\n\nlock file: %s\nholder: %s", e.LockPath, e.Holder)
	if !e.Holder.Running {
		fmt.Fprintf(&b, "\n\nIf no other instance is running the lock is stale and can be removed with:\n  rm %s", e.LockPath)
	}
	return b.String()
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

func (e *LockError) Is(target error) bool {
	return target == ErrLocked
}

// ReadHolder parses the lock file at path. A missing or unreadable file
// yields a zero Holder.
func ReadHolder(path string) Holder {
	data, err := os.ReadFile(path)
	if err != nil {
		return Holder{}
	}
	h := parseHolder(string(data))
	if h.PID > 0 {
		h.Running = isProcessRunning(h.PID)
	}
	return h
}

// parseHolder reads key=value lines; unknown keys are ignored.
func parseHolder(content string) Holder {
	var h Holder
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if pid, err := strconv.Atoi(value); err == nil && pid > 0 {
				h.PID = pid
			}
		case "started":
			h.Started = value
		}
	}
	return h
}

// isProcessRunning sends signal 0, which only checks that pid exists.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

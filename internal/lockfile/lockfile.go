// Package lockfile guards a StudyPipe state directory against a second
// process sharing the same SQLite history.
//
// The lock is an flock on a file in the directory; the kernel releases it when
// the process exits, so a crash never leaves the directory wedged.
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
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "studypipe.lock"

// ErrLocked is matched by errors.Is when another process holds the lock.
var ErrLocked = errors.New("state directory locked by another process")

// Lock is a held directory lock.
type Lock struct {
	file *os.File
	path string
}

// AcquireLock takes an exclusive, non-blocking lock on dir, creating the
// directory if needed.
func AcquireLock(dir string) (*Lock, error) {
	path := filepath.Join(dir, LockFileName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	// O_TRUNC would wipe the holder's pid before we know whether we win the lock
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := describeHolder(path)
		slog.Error("lockfile.AcquireLock: state directory already locked", "lock_path", path, "holder", holder)
		return nil, &LockError{Path: path, Holder: holder, Cause: err}
	}

	if err := file.Truncate(0); err == nil {
		_, err = file.WriteAt([]byte(fmt.Sprintf("pid=%d\n", os.Getpid())), 0)
		if err != nil {
			slog.Warn("lockfile.AcquireLock: failed to record pid", "lock_path", path, "error", err)
		}
	}

	slog.Info("lockfile.AcquireLock: acquired state directory lock", "lock_path", path, "pid", os.Getpid())
	return &Lock{file: file, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// remove while still holding the lock so a waiting process never sees our file
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("lockfile.Lock.Release: failed to remove lock file", "lock_path", l.path, "error", err)
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	slog.Debug("lockfile.Lock.Release: released state directory lock", "lock_path", l.path)
	return err
}

// LockError reports a directory already locked by another process.
type LockError struct {
	Path   string
	Holder string
	Cause  error
}

func (e *LockError) Error() string {
	msg := fmt.Sprintf("another StudyPipe instance is using this state directory (lock file %s", e.Path)
	if e.Holder != "" {
		msg += ", held by " + e.Holder
	}
	return msg + "); stop it or choose a different -state-dir"
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrLocked) match any LockError.
func (e *LockError) Is(target error) bool {
	return target == ErrLocked
}

// describeHolder reads the pid recorded by the current holder, if any.
func describeHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	content := strings.TrimSpace(string(data))
	pidText, ok := strings.CutPrefix(content, "pid=")
	if !ok {
		return content
	}
	pid, err := strconv.Atoi(pidText)
	if err != nil || pid <= 0 {
		return content
	}
	proc, err := os.FindProcess(pid)
	if err == nil && proc.Signal(syscall.Signal(0)) == nil {
		return fmt.Sprintf("pid %d (running)", pid)
	}
	return fmt.Sprintf("pid %d (not running)", pid)
}

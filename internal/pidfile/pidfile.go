// Package pidfile keeps a single meetingd instance per user.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// AlreadyRunningError is returned by New when a live process owns the file
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("another instance is already running (PID %d)", e.PID)
}

// PIDFile manages a PID file for preventing duplicate instances
type PIDFile struct {
	path string
	pid  int
}

// New claims path for the current process. A file left by a dead process
// is replaced; one held by a live process yields *AlreadyRunningError.
func New(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create PID directory")
	}

	pid := os.Getpid()
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", pid)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, errors.Wrap(firstErr(werr, cerr), "write PID file")
			}
			return &PIDFile{path: path, pid: pid}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, errors.Wrap(err, "create PID file")
		}

		existing, ok := readPID(path)
		if ok && isProcessRunning(existing) {
			return nil, &AlreadyRunningError{PID: existing}
		}
		// Stale or unreadable: drop it and retry the exclusive create once
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(err, "remove stale PID file")
		}
	}
	return nil, errors.Errorf("PID file %s keeps reappearing", path)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// Path returns the file location
func (p *PIDFile) Path() string {
	return p.path
}

// Remove deletes the PID file if it still holds our PID
func (p *PIDFile) Remove() error {
	if p == nil {
		return nil
	}
	if pid, ok := readPID(p.path); ok && pid == p.pid {
		return os.Remove(p.path)
	}
	return nil
}

// isProcessRunning probes pid with signal 0
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// Exists but belongs to someone else
		return true
	default:
		return false
	}
}

// DefaultPath returns the per-user PID file location for name
func DefaultPath(name string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".cache")
	}
	return filepath.Join(dir, "meetsense", name+".pid")
}

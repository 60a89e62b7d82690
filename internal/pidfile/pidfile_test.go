package pidfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func readFilePID(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read PID file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("invalid PID in file: %q", data)
	}
	return pid
}

func TestNew(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "nested", "meetingd.pid")

	pf, err := New(pidPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = pf.Remove() }()

	if pf.Path() != pidPath {
		t.Errorf("Path = %q", pf.Path())
	}
	if got := readFilePID(t, pidPath); got != os.Getpid() {
		t.Errorf("PID = %d, want %d", got, os.Getpid())
	}
}

func TestNew_AlreadyRunning(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "meetingd.pid")

	pf, err := New(pidPath)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	defer func() { _ = pf.Remove() }()

	_, err = New(pidPath)
	var running *AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("got %v, want *AlreadyRunningError", err)
	}
	if running.PID != os.Getpid() {
		t.Errorf("reported PID %d, want %d", running.PID, os.Getpid())
	}
}

func TestNew_ReplacesStaleFile(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "dead process", contents: "99999\n"},
		{name: "garbage", contents: "not-a-pid"},
		{name: "empty", contents: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(t.TempDir(), "meetingd.pid")
			if err := os.WriteFile(pidPath, []byte(tt.contents), 0644); err != nil {
				t.Fatal(err)
			}

			pf, err := New(pidPath)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer func() { _ = pf.Remove() }()

			if got := readFilePID(t, pidPath); got != os.Getpid() {
				t.Errorf("PID = %d, want %d", got, os.Getpid())
			}
		})
	}
}

func TestRemove(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "meetingd.pid")
	pf, err := New(pidPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := pf.Remove(); err != nil {
		t.Errorf("Remove: %v", err)
	}
	if _, err := os.Stat(pidPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("PID file still exists after removal")
	}

	var nilPF *PIDFile
	if err := nilPF.Remove(); err != nil {
		t.Errorf("nil Remove: %v", err)
	}
}

func TestRemove_OnlyOwnPID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "meetingd.pid")
	pf, err := New(pidPath)
	if err != nil {
		t.Fatal(err)
	}

	// Another instance took over the file
	other := os.Getpid() + 1
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(other)+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := pf.Remove(); err != nil {
		t.Errorf("Remove: %v", err)
	}
	if got := readFilePID(t, pidPath); got != other {
		t.Errorf("PID = %d, want %d untouched", got, other)
	}
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath("meetingd")
	if filepath.Base(path) != "meetingd.pid" {
		t.Errorf("base = %q", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != "meetsense" {
		t.Errorf("dir = %q", filepath.Dir(path))
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Error("current process should be detected as running")
	}
	if isProcessRunning(99999) {
		t.Error("non-existent process should not be detected as running")
	}
}

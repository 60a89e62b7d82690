package diaglog

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// rollingWriter appends to a file and starts over from an empty file when the
// next write would cross maxSize, so the newest entries always survive.
type rollingWriter struct {
	path    string
	maxSize int64
	f       *os.File
	size    int64
	mu      sync.Mutex
}

func newRollingWriter(path string, maxSize int64) (*rollingWriter, error) {
	if maxSize <= 0 {
		return nil, errors.Errorf("diaglog: max size must be positive, got %d", maxSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "diaglog: create log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "diaglog: open %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "diaglog: stat %s", path)
	}
	return &rollingWriter{path: path, maxSize: maxSize, f: f, size: info.Size()}, nil
}

func (rw *rollingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size+int64(len(p)) > rw.maxSize {
		if err := rw.f.Truncate(0); err != nil {
			return 0, errors.Wrap(err, "diaglog: truncate")
		}
		if _, err := rw.f.Seek(0, io.SeekStart); err != nil {
			return 0, errors.Wrap(err, "diaglog: rewind")
		}
		rw.size = 0
	}

	n, err := rw.f.Write(p)
	rw.size += int64(n)
	if err != nil {
		return n, errors.Wrap(err, "diaglog: write")
	}
	return n, nil
}

func (rw *rollingWriter) close() error {
	_ = rw.f.Sync()
	return rw.f.Close()
}

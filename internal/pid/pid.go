// Package pid keeps a single API server per PID file.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/dcrmctl/internal/errors"
)

const (
	DefaultName = "dcrmctl.pid"

	filePerm = 0o600
	dirPerm  = 0o755
)

// File is an acquired PID file
type File struct {
	path string
}

// DefaultPath is the PID file used when none is configured
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultName)
}

// Acquire writes the current process ID to path. It fails with
// errors.ErrAlreadyRunning when the file names a live process; a file left
// behind by a dead process is overwritten.
func Acquire(path string) (*File, error) {
	errFactory := errors.New()

	if path == "" {
		path = DefaultPath()
	}

	if running, err := isRunning(path); err != nil {
		return nil, err
	} else if running {
		return nil, errFactory.WithData(errors.ErrAlreadyRunning, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), filePerm); err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}

	return &File{path: path}, nil
}

// Path returns the location of the PID file
func (f *File) Path() string {
	return f.path
}

// Release removes the PID file. Releasing twice is a no-op.
func (f *File) Release() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func isRunning(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.New().Wrap(errors.ErrInternal, err)
	}

	// unreadable contents are treated as stale
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false, nil
	}
	if pid == os.Getpid() {
		return true, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	return process.Signal(syscall.Signal(0)) == nil, nil
}

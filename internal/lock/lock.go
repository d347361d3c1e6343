// Package lock keeps a single hearth process writing to a data directory.
// The lock is a file holding the owner's PID; a lock whose PID is no longer a
// running hearth process is stale and gets replaced.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/logger"
)

var findProcessFunc = ps.FindProcess

// ErrLocked is returned when another live hearth process holds the lock.
var ErrLocked = errors.New("data directory is in use by another hearth process")

type Lock struct {
	path string
	pid  int
}

// Acquire takes the lock in dir, replacing a stale lock if one is found.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	l := &Lock{path: filepath.Join(dir, constants.LockFileName), pid: os.Getpid()}

	for attempt := 0; attempt < 2; attempt++ {
		err := l.create()
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		holder, ok := readPID(l.path)
		if ok && holder != l.pid && holderAlive(holder) {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder)
		}
		logger.Warn("Replacing stale lock file", "path", l.path, "pid", holder)
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: lock file keeps reappearing", ErrLocked)
}

func (l *Lock) create() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(l.pid)); err != nil {
		f.Close()
		os.Remove(l.path)
		return err
	}
	return f.Close()
}

// Path is the lock file location.
func (l *Lock) Path() string { return l.path }

// Release removes the lock file if it still belongs to this process.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	holder, ok := readPID(l.path)
	if !ok || holder != l.pid {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Holder reports the PID recorded in dir's lock file and whether that
// process is a running hearth.
func Holder(dir string) (pid int, alive bool, ok bool) {
	pid, ok = readPID(filepath.Join(dir, constants.LockFileName))
	if !ok {
		return 0, false, false
	}
	return pid, holderAlive(pid), true
}

func readPID(path string) (int, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func holderAlive(pid int) bool {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}

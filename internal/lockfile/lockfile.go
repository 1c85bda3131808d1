// Package lockfile enforces a single server instance per state directory.
//
// The lock is an O_EXCL-created file holding the owner's PID and start time.
// A leftover lock from a crashed server is taken over once the recorded PID
// is dead or the file has outlived the stale age.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/codefionn/auswahl/internal/consts"
)

// ErrLocked reports that another live server owns the lock.
var ErrLocked = errors.New("server is already running")

// Lockfile represents a file-based lock
type Lockfile struct {
	path   string
	file   *os.File
	pid    int
	locked bool
}

// New creates a new lockfile instance
func New(path string) *Lockfile {
	return &Lockfile{
		path: path,
	}
}

// TryAcquire attempts to acquire the lock. It never blocks; a held lock
// returns ErrLocked with the owner's PID in the message.
func (l *Lockfile) TryAcquire() error {
	// Ensure directory exists
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create lockfile directory: %w", err)
	}

	file, err := l.create()
	if err == nil {
		return l.writeOwner(file)
	}
	if !os.IsExist(err) {
		return fmt.Errorf("failed to create lockfile: %w", err)
	}

	// File already exists; take it over if the recorded owner is gone
	stale, reason, checkErr := l.checkStale()
	if checkErr != nil {
		return fmt.Errorf("failed to check lockfile staleness: %w", checkErr)
	}
	if !stale {
		return fmt.Errorf("%w: %s", ErrLocked, reason)
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to remove stale lockfile (%s): %w", reason, err)
	}
	file, err = l.create()
	if err != nil {
		return fmt.Errorf("failed to create lockfile after removing stale one: %w", err)
	}
	return l.writeOwner(file)
}

func (l *Lockfile) create() (*os.File, error) {
	return os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
}

// writeOwner records our PID and start time in the freshly created lock.
func (l *Lockfile) writeOwner(file *os.File) error {
	l.file = file
	l.pid = os.Getpid()
	l.locked = true

	timestamp := time.Now().Format(time.RFC3339)
	content := fmt.Sprintf("%d\n%s\n", l.pid, timestamp)
	if _, err := l.file.WriteString(content); err != nil {
		l.Release()
		return fmt.Errorf("failed to write to lockfile: %w", err)
	}

	// Sync to ensure data is written to disk
	if err := l.file.Sync(); err != nil {
		l.Release()
		return fmt.Errorf("failed to sync lockfile: %w", err)
	}

	return nil
}

// checkStale checks if the lockfile is stale (owner not running or too old)
func (l *Lockfile) checkStale() (bool, string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		// Can't read the lockfile, assume it's corrupted and stale
		return true, "cannot read lockfile", nil
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 1 {
		return true, "invalid lockfile format", nil
	}

	pidStr := strings.TrimSpace(lines[0])
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return true, "invalid PID in lockfile", nil
	}

	running, reason := isProcessRunning(pid)
	if !running {
		return true, reason, nil
	}

	if len(lines) >= 2 {
		timestampStr := strings.TrimSpace(lines[1])
		timestamp, err := time.Parse(time.RFC3339, timestampStr)
		if err == nil && time.Since(timestamp) > consts.LockStaleAge {
			return true, fmt.Sprintf("lockfile is older than %s", consts.LockStaleAge), nil
		}
	}

	return false, fmt.Sprintf("process with PID %d is running", pid), nil
}

// Release releases the lock and removes the file.
func (l *Lockfile) Release() error {
	if !l.locked {
		return nil
	}

	var err error
	if l.file != nil {
		if closeErr := l.file.Close(); closeErr != nil {
			err = closeErr
		}
		l.file = nil
	}

	if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) {
		if err != nil {
			err = fmt.Errorf("%v; failed to remove lockfile: %w", err, removeErr)
		} else {
			err = fmt.Errorf("failed to remove lockfile: %w", removeErr)
		}
	}

	l.locked = false
	return err
}

// PID returns the PID that acquired the lock
func (l *Lockfile) PID() int {
	return l.pid
}

// Locked returns true if the lock is held
func (l *Lockfile) Locked() bool {
	return l.locked
}

// Path returns the lockfile path
func (l *Lockfile) Path() string {
	return l.path
}

package backup

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"tarkeep/internal/logging"
)

// RunLock is the advisory cross-process mutex guarding the destination tree.
// It is a PID file: cooperative by contract, a process ignoring the protocol
// can still mutate the destination. At most one live owner may exist at a
// time; a lock left behind by a dead process is reclaimed on acquire.
type RunLock struct {
	path   string
	pid    int
	dryRun bool
	logger *logging.Logger

	held bool
}

// NewRunLock creates a run lock bound to the given lock file path
func NewRunLock(path string, dryRun bool, logger *logging.Logger) *RunLock {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RunLock{
		path:   path,
		pid:    os.Getpid(),
		dryRun: dryRun,
		logger: logger,
	}
}

// Acquire takes the lock or fails with ErrLockHeld when a live process owns
// it. A stale lock (dead or unidentifiable owner) is reclaimed.
func (rl *RunLock) Acquire() error {
	data, err := os.ReadFile(rl.path)
	switch {
	case err == nil:
		ownerPID, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if parseErr == nil && ownerPID != rl.pid && processAlive(ownerPID) {
			return NewLockHeldError(fmt.Sprintf("lock %s held by running process %d", rl.path, ownerPID))
		}
		rl.logger.Warnf("Reclaiming stale lock %s (owner not running)", rl.path)
		if !rl.dryRun {
			if removeErr := os.Remove(rl.path); removeErr != nil && !os.IsNotExist(removeErr) {
				return NewPermissionError(fmt.Sprintf("failed to reclaim stale lock %s", rl.path), removeErr)
			}
		}
	case os.IsNotExist(err):
		// No lock on disk, free to take it.
	default:
		return NewPermissionError(fmt.Sprintf("failed to read lock %s", rl.path), err)
	}

	if rl.dryRun {
		rl.logger.Infof("Dry run: would write pid %d to lock %s", rl.pid, rl.path)
		rl.held = true
		return nil
	}

	if err := os.WriteFile(rl.path, []byte(strconv.Itoa(rl.pid)+"\n"), 0o644); err != nil {
		return NewPermissionError(fmt.Sprintf("failed to write lock %s", rl.path), err)
	}
	rl.logger.Debugf("Acquired lock %s (pid %d)", rl.path, rl.pid)
	rl.held = true
	return nil
}

// Release removes the lock, but only when this process still owns it.
// Safe to call more than once; every exit path funnels through here.
func (rl *RunLock) Release() error {
	if !rl.held {
		return nil
	}
	rl.held = false

	if rl.dryRun {
		rl.logger.Infof("Dry run: would remove lock %s", rl.path)
		return nil
	}

	data, err := os.ReadFile(rl.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewPermissionError(fmt.Sprintf("failed to read lock %s on release", rl.path), err)
	}

	ownerPID, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil || ownerPID != rl.pid {
		rl.logger.Warnf("Lock %s no longer owned by this process, leaving it in place", rl.path)
		return nil
	}

	if err := os.Remove(rl.path); err != nil && !os.IsNotExist(err) {
		return NewPermissionError(fmt.Sprintf("failed to remove lock %s", rl.path), err)
	}
	rl.logger.Debugf("Released lock %s", rl.path)
	return nil
}

// Held reports whether this process currently holds the lock
func (rl *RunLock) Held() bool {
	return rl.held
}

// Path returns the lock file path
func (rl *RunLock) Path() string {
	return rl.path
}

// processAlive probes a PID with signal 0. EPERM still means the process
// exists, just owned by someone else.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}

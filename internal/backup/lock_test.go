package backup

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "run.lock")
}

func TestRunLock_AcquireRelease(t *testing.T) {
	path := lockPath(t)
	lock := NewRunLock(path, false, nil)

	require.NoError(t, lock.Acquire())
	assert.True(t, lock.Held())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	require.NoError(t, lock.Release())
	assert.False(t, lock.Held())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRunLock_HeldByLiveProcess(t *testing.T) {
	path := lockPath(t)
	// The parent process is alive and is not us.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())+"\n"), 0o644))

	err := NewRunLock(path, false, nil).Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestRunLock_ReclaimsStaleLock(t *testing.T) {
	path := lockPath(t)
	// A PID far beyond pid_max cannot belong to a running process.
	require.NoError(t, os.WriteFile(path, []byte("99999999\n"), 0o644))

	lock := NewRunLock(path, false, nil)
	require.NoError(t, lock.Acquire())
	assert.True(t, lock.Held())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	require.NoError(t, lock.Release())
}

func TestRunLock_ReclaimsGarbageContent(t *testing.T) {
	path := lockPath(t)
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))

	lock := NewRunLock(path, false, nil)
	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
}

func TestRunLock_ReleaseLeavesForeignLock(t *testing.T) {
	path := lockPath(t)
	lock := NewRunLock(path, false, nil)
	require.NoError(t, lock.Acquire())

	// Simulate another process having taken over the lock file.
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o644))

	require.NoError(t, lock.Release())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "12345\n", string(data))
}

func TestRunLock_ReleaseTwice(t *testing.T) {
	lock := NewRunLock(lockPath(t), false, nil)
	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}

func TestRunLock_DryRunWritesNothing(t *testing.T) {
	path := lockPath(t)
	lock := NewRunLock(path, true, nil)

	require.NoError(t, lock.Acquire())
	assert.True(t, lock.Held())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, lock.Release())
}

func TestRunLock_DryRunRespectsLiveHolder(t *testing.T) {
	path := lockPath(t)
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())+"\n"), 0o644))

	err := NewRunLock(path, true, nil).Acquire()
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-5))
	assert.False(t, processAlive(99999999))
}

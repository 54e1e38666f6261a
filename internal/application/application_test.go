package application

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarkeep/internal/backup"
)

// newTestApplication builds an application against temp destination and lock
func newTestApplication(t *testing.T, dryRun bool) (*Application, string, string) {
	t.Helper()
	root := t.TempDir()
	dest := filepath.Join(root, "archives")
	lockPath := filepath.Join(root, "run.lock")

	configFile := filepath.Join(root, "tarkeep.conf")
	contents := "destination_dir = " + dest + "\nlock_path = " + lockPath + "\n"
	require.NoError(t, os.WriteFile(configFile, []byte(contents), 0o644))

	app, err := New(Options{ConfigFile: configFile, DryRun: dryRun, Quiet: true})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, dest, lockPath
}

func makeSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "file.txt"), []byte("payload"), 0o644))
	return src
}

func TestNew_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "tarkeep.conf")
	require.NoError(t, os.WriteFile(configFile, []byte("compression = rar\n"), 0o644))

	_, err := New(Options{ConfigFile: configFile})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNew_UnknownKey(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "tarkeep.conf")
	require.NoError(t, os.WriteFile(configFile, []byte("surprise = 1\n"), 0o644))

	_, err := New(Options{ConfigFile: configFile})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config keys")
}

func TestRunBackup_ReleasesLock(t *testing.T) {
	app, dest, lockPath := newTestApplication(t, false)
	src := makeSource(t)

	require.NoError(t, app.RunBackup(src))

	// Lock is gone once the run finishes.
	_, err := os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 2) // archive plus digest sidecar
}

func TestRunBackup_ReleasesLockOnFailure(t *testing.T) {
	app, _, lockPath := newTestApplication(t, false)

	err := app.RunBackup(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, backup.ErrNotFound)

	_, statErr := os.Stat(lockPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunBackup_LockHeld(t *testing.T) {
	app, _, lockPath := newTestApplication(t, false)
	require.NoError(t, os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getppid())+"\n"), 0o644))

	err := app.RunBackup(makeSource(t))
	assert.ErrorIs(t, err, backup.ErrLockHeld)

	// The foreign lock stays untouched.
	data, readErr := os.ReadFile(lockPath)
	require.NoError(t, readErr)
	assert.Equal(t, strconv.Itoa(os.Getppid())+"\n", string(data))
}

func TestRunBackup_DryRun(t *testing.T) {
	app, dest, lockPath := newTestApplication(t, true)

	require.NoError(t, app.RunBackup(makeSource(t)))

	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRunVerifyAndList(t *testing.T) {
	app, dest, _ := newTestApplication(t, false)
	require.NoError(t, app.RunBackup(makeSource(t)))

	archives, err := app.manager.ListArchives()
	require.NoError(t, err)
	require.Len(t, archives, 1)

	require.NoError(t, app.RunVerify(archives[0].Path))
	require.NoError(t, app.RunList())

	// Tamper and re-verify.
	f, err := os.OpenFile(filepath.Join(dest, archives[0].Name), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = app.RunVerify(archives[0].Path)
	assert.ErrorIs(t, err, backup.ErrChecksumMismatch)
}

func TestRunRestore(t *testing.T) {
	app, _, _ := newTestApplication(t, false)
	src := makeSource(t)
	require.NoError(t, app.RunBackup(src))

	archives, err := app.manager.ListArchives()
	require.NoError(t, err)
	require.Len(t, archives, 1)

	target := filepath.Join(t.TempDir(), "restored")
	require.NoError(t, app.RunRestore(archives[0].Path, target))

	data, err := os.ReadFile(filepath.Join(target, "data", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

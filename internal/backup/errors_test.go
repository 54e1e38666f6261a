package backup

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupError_SentinelMatching(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{NewLockHeldError("lock held by 42"), ErrLockHeld},
		{NewNotFoundError("missing", nil), ErrNotFound},
		{NewPermissionError("denied", nil), ErrPermission},
		{NewInsufficientSpaceError("full"), ErrInsufficientSpace},
		{NewBuildError("broken", nil), ErrBuild},
		{NewMissingDigestError("no sidecar"), ErrMissingDigest},
		{NewChecksumMismatchError("bad digest"), ErrChecksumMismatch},
		{NewCorruptArchiveError("unreadable", nil), ErrCorruptArchive},
		{NewExtractError("failed", nil), ErrExtractFailed},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, tt.err, tt.sentinel)
	}
}

func TestBackupError_UnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := NewBuildError("archive write failed", cause)

	assert.ErrorIs(t, err, ErrBuild)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "archive write failed")
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestBackupError_AsTarget(t *testing.T) {
	var be *BackupError
	err := fmt.Errorf("wrapped: %w", NewNotFoundError("gone", nil))
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "gone", be.Message)
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())

	errs.Add("daily_keep", "must be non-negative", -1)
	assert.True(t, errs.HasErrors())
	assert.Contains(t, errs.Error(), "daily_keep")

	errs.Add("compression", "must be one of gzip, zstd, lz4", "rar")
	assert.Contains(t, errs.Error(), "2 validation errors")
}

package backup

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy of a backup run. Callers branch on
// these with errors.Is; the wrapping BackupError carries the human message and
// the underlying cause.
var (
	// ErrLockHeld means another live process owns the run lock. Fatal, never retried.
	ErrLockHeld = errors.New("run lock held by live process")
	// ErrNotFound means a required source or archive path does not exist
	ErrNotFound = errors.New("not found")
	// ErrPermission means a source or destination path is not accessible
	ErrPermission = errors.New("permission denied")
	// ErrInsufficientSpace means the destination lacks the configured free headroom
	ErrInsufficientSpace = errors.New("insufficient free space")
	// ErrBuild means the archive container could not be produced
	ErrBuild = errors.New("archive build failed")
	// ErrMissingDigest means an archive has no digest sidecar
	ErrMissingDigest = errors.New("digest record missing")
	// ErrChecksumMismatch means the recomputed digest differs from the sealed one
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrCorruptArchive means the archive container is not structurally readable
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrExtractFailed means a restore extraction failed
	ErrExtractFailed = errors.New("extract failed")
)

// BackupError wraps a sentinel with a message and an optional cause
type BackupError struct {
	Kind    error
	Message string
	Cause   error
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As
func (e *BackupError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// NewBackupError creates a new BackupError
func NewBackupError(kind error, message string, cause error) *BackupError {
	return &BackupError{Kind: kind, Message: message, Cause: cause}
}

// Common error constructors

func NewLockHeldError(message string) *BackupError {
	return NewBackupError(ErrLockHeld, message, nil)
}

func NewNotFoundError(message string, cause error) *BackupError {
	return NewBackupError(ErrNotFound, message, cause)
}

func NewPermissionError(message string, cause error) *BackupError {
	return NewBackupError(ErrPermission, message, cause)
}

func NewInsufficientSpaceError(message string) *BackupError {
	return NewBackupError(ErrInsufficientSpace, message, nil)
}

func NewBuildError(message string, cause error) *BackupError {
	return NewBackupError(ErrBuild, message, cause)
}

func NewMissingDigestError(message string) *BackupError {
	return NewBackupError(ErrMissingDigest, message, nil)
}

func NewChecksumMismatchError(message string) *BackupError {
	return NewBackupError(ErrChecksumMismatch, message, nil)
}

func NewCorruptArchiveError(message string, cause error) *BackupError {
	return NewBackupError(ErrCorruptArchive, message, cause)
}

func NewExtractError(message string, cause error) *BackupError {
	return NewBackupError(ErrExtractFailed, message, cause)
}

// ValidationError represents a single invalid configuration field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{Field: field, Message: message, Value: value})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

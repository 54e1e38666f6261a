package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"tarkeep/internal/logging"
)

// Manager orchestrates the backup lifecycle inside the lock window: ensure
// destination, build, seal, verify, rotate, notify. The caller is responsible
// for holding the run lock around every Manager call that touches the
// destination.
type Manager struct {
	config   ManagerConfig
	builder  *ArchiveBuilder
	sealer   *IntegritySealer
	verifier *Verifier
	rotator  *RetentionRotator
	hook     *NotifyHook
	logger   *logging.Logger
}

// ManagerConfig holds the per-run engine configuration
type ManagerConfig struct {
	DestDir         string
	ArchivePrefix   string
	Compression     CompressionType
	ChecksumAlgo    ChecksumAlgo
	ExcludePatterns []string
	MinFreeMB       uint64
	NotifyTarget    string
	Policy          RetentionPolicy
	DryRun          bool
}

// Validate checks the engine configuration
func (c ManagerConfig) Validate() error {
	var errs ValidationErrors
	if c.DestDir == "" {
		errs.Add("destination_dir", "must not be empty", nil)
	}
	if c.ArchivePrefix == "" {
		errs.Add("archive_prefix", "must not be empty", nil)
	}
	if !c.Compression.Valid() {
		errs.Add("compression", "must be one of gzip, zstd, lz4", c.Compression)
	}
	if !c.ChecksumAlgo.Valid() {
		errs.Add("checksum_algo", "must be one of sha256, md5", c.ChecksumAlgo)
	}
	if err := c.Policy.Validate(); err != nil {
		var policyErrs ValidationErrors
		if errors.As(err, &policyErrs) {
			errs = append(errs, policyErrs...)
		} else {
			errs.Add("retention", err.Error(), nil)
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewManager creates a backup lifecycle manager
func NewManager(config ManagerConfig, logger *logging.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Manager{
		config: config,
		builder: NewArchiveBuilder(BuilderConfig{
			DestDir:         config.DestDir,
			ArchivePrefix:   config.ArchivePrefix,
			Compression:     config.Compression,
			ChecksumAlgo:    config.ChecksumAlgo,
			ExcludePatterns: config.ExcludePatterns,
			MinFreeMB:       config.MinFreeMB,
			DryRun:          config.DryRun,
		}, logger),
		sealer:   NewIntegritySealer(config.ChecksumAlgo, config.DryRun, logger),
		verifier: NewVerifier(config.ChecksumAlgo, logger),
		rotator: NewRetentionRotator(RotatorConfig{
			ArchivePrefix: config.ArchivePrefix,
			Compression:   config.Compression,
			ChecksumAlgo:  config.ChecksumAlgo,
			DryRun:        config.DryRun,
		}, logger),
		hook:   NewNotifyHook(config.NotifyTarget, config.DryRun, logger),
		logger: logger,
	}, nil
}

// RunBackup executes the full backup pipeline for sourceDir. A verification
// failure does not roll the run back: the flawed archive stays on disk for
// inspection, rotation still runs, and the error is returned after the
// pipeline finishes.
func (m *Manager) RunBackup(ctx context.Context, sourceDir string) (*BackupResult, error) {
	startTime := time.Now()
	result := &BackupResult{DryRun: m.config.DryRun}

	if err := m.ensureDestination(); err != nil {
		return result, err
	}
	if err := m.builder.EnsureFreeSpace(); err != nil {
		return result, err
	}

	archive, err := m.builder.Build(ctx, sourceDir)
	if err != nil {
		return result, err
	}
	result.Archive = archive

	record, err := m.sealer.Seal(archive.Path)
	if err != nil {
		return result, err
	}
	result.Digest = record

	var verifyErr error
	if m.config.DryRun {
		m.logger.Infof("Dry run: would verify %s", archive.Name)
		result.Verified = true
	} else if verifyErr = m.verifier.Verify(ctx, archive.Path); verifyErr != nil {
		// Reported, not rolled back. The archive stays on disk and the
		// rest of the pipeline still runs.
		m.logger.Failedf("Verification of %s failed: %v", archive.Name, verifyErr)
	} else {
		result.Verified = true
		m.logger.Infof("Verified %s", archive.Name)
	}

	rotation, err := m.rotator.Rotate(ctx, m.config.DestDir, m.config.Policy)
	if err != nil {
		return result, err
	}
	result.Rotation = rotation

	result.Duration = time.Since(startTime)

	if verifyErr != nil {
		return result, verifyErr
	}

	m.hook.Fire(ctx, archive.Path)
	m.logger.Successf("Backup of %s completed as %s in %s", sourceDir, archive.Name, result.Duration.Round(time.Millisecond))
	return result, nil
}

// RunPrune applies retention to the destination without creating a new archive
func (m *Manager) RunPrune(ctx context.Context) (*RotationReport, error) {
	return m.rotator.Rotate(ctx, m.config.DestDir, m.config.Policy)
}

// VerifyArchive re-checks one archive against its digest record
func (m *Manager) VerifyArchive(ctx context.Context, archivePath string) error {
	return m.verifier.Verify(ctx, archivePath)
}

// ListArchives enumerates the destination's archives, newest first
func (m *Manager) ListArchives() ([]*Archive, error) {
	return m.rotator.ListArchives(m.config.DestDir)
}

// ensureDestination creates the destination directory when missing
func (m *Manager) ensureDestination() error {
	if m.config.DryRun {
		if _, err := os.Stat(m.config.DestDir); os.IsNotExist(err) {
			m.logger.Infof("Dry run: would create destination directory %s", m.config.DestDir)
		}
		return nil
	}
	if err := os.MkdirAll(m.config.DestDir, 0o755); err != nil {
		return NewPermissionError(fmt.Sprintf("failed to create destination directory %s", m.config.DestDir), err)
	}
	return nil
}

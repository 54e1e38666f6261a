package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tarkeep/internal/backup"
	"tarkeep/internal/config"
	"tarkeep/internal/display"
	"tarkeep/internal/logging"
)

// Application wires the settings record, logger, display and engine together
// and owns the run lock window around every destination-mutating operation.
type Application struct {
	settings config.Settings
	logger   *logging.Logger
	display  *display.Service
	manager  *backup.Manager
	lock     *backup.RunLock
	shutdown *ShutdownHandler
	dryRun   bool
}

// Options holds the flag-level knobs layered on top of the settings record
type Options struct {
	ConfigFile string
	DryRun     bool
	Verbose    bool
	Quiet      bool
	LogFile    string
	NoColor    bool
}

// New loads settings, builds the logger and constructs the application
func New(opts Options) (*Application, error) {
	loaded, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	settings := loaded.Settings

	if opts.LogFile != "" {
		settings.LogFile = opts.LogFile
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := logging.LogLevelNormal
	if opts.Quiet {
		level = logging.LogLevelQuiet
	} else if opts.Verbose {
		level = logging.LogLevelVerbose
	}

	logger, err := logging.NewLogger(logging.Config{Level: level, LogFile: settings.LogFile})
	if err != nil {
		return nil, err
	}
	for _, warning := range loaded.Warnings {
		logger.Warn(warning)
	}

	manager, err := backup.NewManager(backup.ManagerConfig{
		DestDir:         settings.DestinationDir,
		ArchivePrefix:   settings.ArchivePrefix,
		Compression:     backup.CompressionType(settings.Compression),
		ChecksumAlgo:    backup.ChecksumAlgo(settings.ChecksumAlgo),
		ExcludePatterns: backup.ParseExcludePatterns(settings.ExcludePatterns),
		MinFreeMB:       settings.MinFreeMB,
		NotifyTarget:    settings.NotifyTarget,
		Policy:          settings.Policy(),
		DryRun:          opts.DryRun,
	}, logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	app := &Application{
		settings: settings,
		logger:   logger,
		display:  display.NewService(opts.NoColor),
		manager:  manager,
		lock:     backup.NewRunLock(settings.LockPath, opts.DryRun, logger),
		shutdown: NewShutdownHandler(logger),
		dryRun:   opts.DryRun,
	}
	return app, nil
}

// Close releases application resources (the log file)
func (app *Application) Close() {
	app.logger.Close()
}

// Logger exposes the run logger
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// RunBackup executes the backup pipeline for sourceDir inside the lock window
func (app *Application) RunBackup(sourceDir string) error {
	return app.withLock(func(ctx context.Context) error {
		runID := uuid.NewString()
		app.logger.WithField("run_id", runID).Info("Backup run starting")

		result, err := app.manager.RunBackup(ctx, sourceDir)
		if err != nil {
			return err
		}

		if result.Rotation != nil {
			app.display.RotationSummary(result.Rotation)
		}
		if result.DryRun {
			app.display.Printf("Dry run: no filesystem changes were made")
		}
		app.display.Success(fmt.Sprintf("Backup completed: %s", result.Archive.Name))
		return nil
	})
}

// RunRestore extracts an archive into targetDir inside the lock window
func (app *Application) RunRestore(archivePath, targetDir string) error {
	return app.withLock(func(ctx context.Context) error {
		executor := backup.NewRestoreExecutor(app.dryRun, app.logger)
		if err := executor.Restore(ctx, archivePath, targetDir); err != nil {
			return err
		}
		app.logger.Successf("Restore of %s to %s completed", archivePath, targetDir)
		app.display.Success(fmt.Sprintf("Restored %s to %s", archivePath, targetDir))
		return nil
	})
}

// RunPrune applies retention only, inside the lock window
func (app *Application) RunPrune() error {
	return app.withLock(func(ctx context.Context) error {
		report, err := app.manager.RunPrune(ctx)
		if err != nil {
			return err
		}
		app.display.RotationSummary(report)
		return nil
	})
}

// RunList enumerates the destination's archives. Read-only, no lock needed.
func (app *Application) RunList() error {
	archives, err := app.manager.ListArchives()
	if err != nil {
		return app.fail(err)
	}
	app.display.ArchiveTable(archives)
	return nil
}

// RunVerify re-checks a single archive. Read-only, no lock needed.
func (app *Application) RunVerify(archivePath string) error {
	if err := app.manager.VerifyArchive(context.Background(), archivePath); err != nil {
		app.logger.Failedf("Verification of %s failed: %v", archivePath, err)
		app.display.Failure(fmt.Sprintf("Verification failed: %v", err))
		return err
	}
	app.logger.Successf("Verification of %s passed", archivePath)
	app.display.Success(fmt.Sprintf("Archive %s verified", archivePath))
	return nil
}

// withLock runs fn with the run lock held. Release is guaranteed on the
// normal return path, on error, and on SIGINT/SIGTERM; this is the one
// non-negotiable cleanup guarantee of the process.
func (app *Application) withLock(fn func(context.Context) error) error {
	if err := app.lock.Acquire(); err != nil {
		return app.fail(err)
	}
	defer func() {
		if err := app.lock.Release(); err != nil {
			app.logger.Warnf("Lock release: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.shutdown.Arm(func() {
		cancel()
		if err := app.lock.Release(); err != nil {
			app.logger.Warnf("Lock release on shutdown: %v", err)
		}
		app.logger.Close()
	})
	defer app.shutdown.Disarm()

	if err := fn(ctx); err != nil {
		return app.fail(err)
	}
	return nil
}

// fail is the single termination path for fatal conditions: log ERROR, hand
// a non-nil error to the CLI layer which exits non-zero. The lock, when held,
// is released by the deferred block in withLock before this error escapes
// the process.
func (app *Application) fail(err error) error {
	app.logger.Errorf("%v", err)
	return err
}

package backup

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"tarkeep/internal/logging"
)

// NotifyHook invokes an external notification command after a successful
// backup. The stock deployment points this at a screenshot-capture script.
// Hook failure is never allowed to fail the backup run.
type NotifyHook struct {
	target  string
	timeout time.Duration
	dryRun  bool
	logger  *logging.Logger
}

// NewNotifyHook creates a hook for the configured notify target. An empty
// target disables the hook.
func NewNotifyHook(target string, dryRun bool, logger *logging.Logger) *NotifyHook {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &NotifyHook{
		target:  target,
		timeout: 30 * time.Second,
		dryRun:  dryRun,
		logger:  logger,
	}
}

// Enabled reports whether a notify target is configured
func (h *NotifyHook) Enabled() bool {
	return strings.TrimSpace(h.target) != ""
}

// Fire runs the notify command with the archive path as its argument.
// Any failure is logged as a warning and swallowed.
func (h *NotifyHook) Fire(ctx context.Context, archivePath string) {
	if !h.Enabled() {
		return
	}

	if h.dryRun {
		h.logger.Infof("Dry run: would run notify hook %s %s", h.target, archivePath)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.target, archivePath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		h.logger.Warnf("Notify hook %s failed: %v (output: %s)", h.target, err, strings.TrimSpace(string(output)))
		return
	}
	h.logger.Infof("Notify hook %s completed", h.target)
}

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tarkeep/internal/logging"
)

// RetentionRotator classifies the destination's archives into daily, weekly
// and monthly buckets and deletes everything not selected for retention.
// Per-file failures are logged and never abort the pass.
type RetentionRotator struct {
	prefix string
	codec  CompressionType
	algo   ChecksumAlgo
	dryRun bool
	logger *logging.Logger
}

// RotatorConfig holds retention rotator configuration
type RotatorConfig struct {
	ArchivePrefix string
	Compression   CompressionType
	ChecksumAlgo  ChecksumAlgo
	DryRun        bool
}

// NewRetentionRotator creates a new retention rotator
func NewRetentionRotator(config RotatorConfig, logger *logging.Logger) *RetentionRotator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RetentionRotator{
		prefix: config.ArchivePrefix,
		codec:  config.Compression,
		algo:   config.ChecksumAlgo,
		dryRun: config.DryRun,
		logger: logger,
	}
}

// ListArchives enumerates destDir entries matching the naming scheme, newest
// first by the timestamp embedded in the name. Matching files whose timestamp
// does not parse are returned with a zero CreatedAt, sorted last.
func (rr *RetentionRotator) ListArchives(destDir string) ([]*Archive, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("destination directory %s does not exist", destDir), err)
		}
		return nil, NewPermissionError(fmt.Sprintf("failed to read destination directory %s", destDir), err)
	}

	var archives []*Archive
	for _, entry := range entries {
		if entry.IsDir() || !MatchesNamingScheme(entry.Name(), rr.prefix, rr.codec) {
			continue
		}

		archive := &Archive{
			Path:  filepath.Join(destDir, entry.Name()),
			Name:  entry.Name(),
			Algo:  rr.algo,
			Codec: rr.codec,
		}
		if info, err := entry.Info(); err == nil {
			archive.Size = info.Size()
		}
		if ts, ok := ParseArchiveName(entry.Name(), rr.prefix, rr.codec); ok {
			archive.CreatedAt = ts
		}
		archives = append(archives, archive)
	}

	// Filenames are the source of truth: descending by embedded timestamp,
	// name as tie breaker so the order is deterministic.
	sort.Slice(archives, func(i, j int) bool {
		if !archives[i].CreatedAt.Equal(archives[j].CreatedAt) {
			return archives[i].CreatedAt.After(archives[j].CreatedAt)
		}
		return archives[i].Name > archives[j].Name
	})

	return archives, nil
}

// Rotate applies the GFS retention policy to destDir. Archives are processed
// newest first; each is kept by the first unfilled bucket in day, week, month
// priority order. Archives matched by no rule are deleted together with their
// digest records.
func (rr *RetentionRotator) Rotate(ctx context.Context, destDir string, policy RetentionPolicy) (*RotationReport, error) {
	startTime := time.Now()

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	archives, err := rr.ListArchives(destDir)
	if err != nil {
		if rr.dryRun && errors.Is(err, ErrNotFound) {
			rr.logger.Infof("Dry run: destination %s does not exist yet, nothing to rotate", destDir)
			return &RotationReport{DryRun: true, Duration: time.Since(startTime)}, nil
		}
		return nil, err
	}

	report := &RotationReport{DryRun: rr.dryRun}

	seenDays := make(map[string]bool)
	seenWeeks := make(map[string]bool)
	seenMonths := make(map[string]bool)

	for _, archive := range archives {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		report.Processed++

		if archive.CreatedAt.IsZero() {
			// Fail-safe: never delete a file whose instant we cannot read.
			report.Kept++
			report.Exempt++
			report.Decisions = append(report.Decisions, RotationDecision{Archive: archive, Kept: true, Reason: ReasonExempt})
			rr.logger.Warnf("Rotation-exempt anomaly: %s has no parseable timestamp, keeping permanently", archive.Name)
			continue
		}

		reason, kept := rr.classify(archive.CreatedAt, policy, seenDays, seenWeeks, seenMonths)
		if kept {
			report.Kept++
			report.Decisions = append(report.Decisions, RotationDecision{Archive: archive, Kept: true, Reason: reason})
			rr.logger.Debugf("Keeping %s (%s bucket)", archive.Name, reason)
			continue
		}

		report.Deleted++
		report.Decisions = append(report.Decisions, RotationDecision{Archive: archive})
		rr.delete(archive, report)
	}

	report.Duration = time.Since(startTime)
	rr.logger.Infof("Rotation complete: %d processed, %d kept, %d deleted, %d exempt",
		report.Processed, report.Kept, report.Deleted, report.Exempt)
	return report, nil
}

// classify runs the day, week, month bucket rules in priority order,
// short-circuiting on the first unfilled bucket. A zero keep count disables
// that bucket entirely.
func (rr *RetentionRotator) classify(ts time.Time, policy RetentionPolicy, seenDays, seenWeeks, seenMonths map[string]bool) (RetentionReason, bool) {
	if day := DayKey(ts); !seenDays[day] && len(seenDays) < policy.DailyKeep {
		seenDays[day] = true
		return ReasonDaily, true
	}
	if week := WeekKey(ts); !seenWeeks[week] && len(seenWeeks) < policy.WeeklyKeep {
		seenWeeks[week] = true
		return ReasonWeekly, true
	}
	if month := MonthKey(ts); !seenMonths[month] && len(seenMonths) < policy.MonthlyKeep {
		seenMonths[month] = true
		return ReasonMonthly, true
	}
	return "", false
}

// delete removes an archive and its digest record together. A failed sidecar
// delete downgrades to a warning; the archive still counts as gone.
func (rr *RetentionRotator) delete(archive *Archive, report *RotationReport) {
	if rr.dryRun {
		rr.logger.Infof("Dry run: would delete %s and %s", archive.Name, filepath.Base(archive.DigestPath()))
		return
	}

	rr.logger.Infof("Deleting %s", archive.Name)
	if err := os.Remove(archive.Path); err != nil && !os.IsNotExist(err) {
		msg := fmt.Sprintf("failed to delete archive %s: %v", archive.Name, err)
		report.Errors = append(report.Errors, msg)
		rr.logger.Error(msg)
		return
	}

	if err := os.Remove(archive.DigestPath()); err != nil && !os.IsNotExist(err) {
		rr.logger.Warnf("Failed to delete digest record for %s: %v", archive.Name, err)
	}
}

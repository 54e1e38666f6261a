package backup

import (
	"time"
)

// ChecksumAlgo identifies the digest algorithm sealing an archive
type ChecksumAlgo string

const (
	// ChecksumSHA256 is the default sealing algorithm
	ChecksumSHA256 ChecksumAlgo = "sha256"
	// ChecksumMD5 is the legacy alternative
	ChecksumMD5 ChecksumAlgo = "md5"
)

// Valid reports whether the algorithm is one of the supported values
func (a ChecksumAlgo) Valid() bool {
	return a == ChecksumSHA256 || a == ChecksumMD5
}

// CompressionType identifies the archive compression codec
type CompressionType string

const (
	// CompressionGzip produces .tar.gz archives (default)
	CompressionGzip CompressionType = "gzip"
	// CompressionZstd produces .tar.zst archives
	CompressionZstd CompressionType = "zstd"
	// CompressionLZ4 produces .tar.lz4 archives
	CompressionLZ4 CompressionType = "lz4"
)

// Extension returns the archive filename extension for the codec
func (c CompressionType) Extension() string {
	switch c {
	case CompressionZstd:
		return "tar.zst"
	case CompressionLZ4:
		return "tar.lz4"
	default:
		return "tar.gz"
	}
}

// Valid reports whether the codec is one of the supported values
func (c CompressionType) Valid() bool {
	return c == CompressionGzip || c == CompressionZstd || c == CompressionLZ4
}

// Archive represents a single immutable snapshot artifact in the destination
// directory. The creation instant comes from the filename, never from
// filesystem metadata.
type Archive struct {
	Path      string          `json:"path"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	Size      int64           `json:"size"`
	Algo      ChecksumAlgo    `json:"algo"`
	Codec     CompressionType `json:"codec"`
}

// DigestPath returns the path of the archive's digest sidecar
func (a *Archive) DigestPath() string {
	return a.Path + "." + string(a.Algo)
}

// DigestRecord is the sidecar artifact sealing an archive's content digest
type DigestRecord struct {
	Path    string       `json:"path"`
	Digest  string       `json:"digest"`
	Archive string       `json:"archive"`
	Algo    ChecksumAlgo `json:"algo"`
}

// RetentionPolicy is the immutable per-run retention configuration
type RetentionPolicy struct {
	DailyKeep   int `mapstructure:"daily_keep"`
	WeeklyKeep  int `mapstructure:"weekly_keep"`
	MonthlyKeep int `mapstructure:"monthly_keep"`
}

// Validate checks the policy counts
func (p RetentionPolicy) Validate() error {
	var errs ValidationErrors
	if p.DailyKeep < 0 {
		errs.Add("daily_keep", "must be non-negative", p.DailyKeep)
	}
	if p.WeeklyKeep < 0 {
		errs.Add("weekly_keep", "must be non-negative", p.WeeklyKeep)
	}
	if p.MonthlyKeep < 0 {
		errs.Add("monthly_keep", "must be non-negative", p.MonthlyKeep)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// RetentionReason records which bucket rule kept an archive
type RetentionReason string

const (
	ReasonDaily   RetentionReason = "daily"
	ReasonWeekly  RetentionReason = "weekly"
	ReasonMonthly RetentionReason = "monthly"
	ReasonExempt  RetentionReason = "unparseable-name"
)

// RotationDecision records the fate of one archive during rotation
type RotationDecision struct {
	Archive *Archive        `json:"archive"`
	Kept    bool            `json:"kept"`
	Reason  RetentionReason `json:"reason,omitempty"`
}

// RotationReport summarizes one rotation pass over the destination
type RotationReport struct {
	Processed int                `json:"processed"`
	Kept      int                `json:"kept"`
	Deleted   int                `json:"deleted"`
	Exempt    int                `json:"exempt"`
	Decisions []RotationDecision `json:"decisions"`
	Errors    []string           `json:"errors,omitempty"`
	DryRun    bool               `json:"dry_run"`
	Duration  time.Duration      `json:"duration"`
}

// BackupResult summarizes a completed backup pipeline run
type BackupResult struct {
	Archive  *Archive        `json:"archive"`
	Digest   *DigestRecord   `json:"digest,omitempty"`
	Rotation *RotationReport `json:"rotation,omitempty"`
	Verified bool            `json:"verified"`
	DryRun   bool            `json:"dry_run"`
	Duration time.Duration   `json:"duration"`
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"tarkeep/internal/backup"
)

// Settings is the declarative configuration record for a run. It is loaded
// once at startup from a key=value file plus flag overrides and never changes
// afterwards; every component receives it (or a slice of it) explicitly.
type Settings struct {
	DestinationDir  string `mapstructure:"destination_dir"`
	ExcludePatterns string `mapstructure:"exclude_patterns"`
	DailyKeep       int    `mapstructure:"daily_keep"`
	WeeklyKeep      int    `mapstructure:"weekly_keep"`
	MonthlyKeep     int    `mapstructure:"monthly_keep"`
	ChecksumAlgo    string `mapstructure:"checksum_algo"`
	Compression     string `mapstructure:"compression"`
	NotifyTarget    string `mapstructure:"notify_target"`
	MinFreeMB       uint64 `mapstructure:"min_free_mb"`
	LockPath        string `mapstructure:"lock_path"`
	ArchivePrefix   string `mapstructure:"archive_prefix"`
	LogFile         string `mapstructure:"log_file"`
}

// knownKeys is the closed set of settings the record accepts. Settings files
// are data, not code: an unknown key is rejected instead of being executed or
// silently ignored.
var knownKeys = map[string]bool{
	"destination_dir":  true,
	"exclude_patterns": true,
	"daily_keep":       true,
	"weekly_keep":      true,
	"monthly_keep":     true,
	"checksum_algo":    true,
	"compression":      true,
	"notify_target":    true,
	"min_free_mb":      true,
	"lock_path":        true,
	"archive_prefix":   true,
	"log_file":         true,
}

// Defaults returns the built-in settings used when no file is present
func Defaults() Settings {
	return Settings{
		DestinationDir: "backups",
		DailyKeep:      7,
		WeeklyKeep:     4,
		MonthlyKeep:    6,
		ChecksumAlgo:   string(backup.ChecksumSHA256),
		Compression:    string(backup.CompressionGzip),
		MinFreeMB:      500,
		LockPath:       filepath.Join(os.TempDir(), "tarkeep.lock"),
		ArchivePrefix:  "backup",
	}
}

// LoadResult carries the loaded settings plus loader observations the caller
// should surface (the logger is not constructed until settings are known).
type LoadResult struct {
	Settings Settings
	Warnings []string
}

// Load reads the settings record from path. A missing file is not fatal:
// defaults apply and a warning is recorded. Unknown keys are rejected.
func Load(path string) (*LoadResult, error) {
	result := &LoadResult{Settings: Defaults()}

	if path == "" {
		return result, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("config file %s not found, using defaults", path))
			return result, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := rejectUnknownKeys(v); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&result.Settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return result, nil
}

// rejectUnknownKeys fails loading when the file carries keys outside the record
func rejectUnknownKeys(v *viper.Viper) error {
	var unknown []string
	for _, key := range v.AllKeys() {
		if !knownKeys[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown config keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Validate checks the loaded record before any component consumes it
func (s *Settings) Validate() error {
	var errs backup.ValidationErrors

	if s.DestinationDir == "" {
		errs.Add("destination_dir", "must not be empty", nil)
	}
	if s.LockPath == "" {
		errs.Add("lock_path", "must not be empty", nil)
	}
	if s.ArchivePrefix == "" {
		errs.Add("archive_prefix", "must not be empty", nil)
	}
	if strings.ContainsAny(s.ArchivePrefix, "/-") {
		errs.Add("archive_prefix", "must not contain '/' or '-'", s.ArchivePrefix)
	}
	if !backup.ChecksumAlgo(s.ChecksumAlgo).Valid() {
		errs.Add("checksum_algo", "must be one of sha256, md5", s.ChecksumAlgo)
	}
	if !backup.CompressionType(s.Compression).Valid() {
		errs.Add("compression", "must be one of gzip, zstd, lz4", s.Compression)
	}
	if s.DailyKeep < 0 {
		errs.Add("daily_keep", "must be non-negative", s.DailyKeep)
	}
	if s.WeeklyKeep < 0 {
		errs.Add("weekly_keep", "must be non-negative", s.WeeklyKeep)
	}
	if s.MonthlyKeep < 0 {
		errs.Add("monthly_keep", "must be non-negative", s.MonthlyKeep)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Policy returns the retention policy slice of the record
func (s *Settings) Policy() backup.RetentionPolicy {
	return backup.RetentionPolicy{
		DailyKeep:   s.DailyKeep,
		WeeklyKeep:  s.WeeklyKeep,
		MonthlyKeep: s.MonthlyKeep,
	}
}

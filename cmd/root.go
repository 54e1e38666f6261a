package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tarkeep/internal/application"
)

// CLI flag variables
var (
	cfgFile string
	dryRun  bool
	verbose bool
	quiet   bool
	logFile string
	noColor bool
)

// Version information (set from main)
var (
	versionString = "dev"
	buildTime     = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tarkeep",
	Short: "Scheduled directory backups with checksum sealing and GFS retention",
	Long: `tarkeep archives a source directory into a timestamped, compressed,
checksum-sealed tar artifact, verifies it, and keeps a bounded
grandfather-father-son set of daily, weekly and monthly snapshots in the
destination directory. A PID-file run lock ensures only one backup or
restore acts on the destination at a time.

Examples:
  # Back up a directory using the settings record
  tarkeep backup /srv/data --config tarkeep.conf

  # See what a backup and rotation would do without touching anything
  tarkeep backup /srv/data --config tarkeep.conf --dry-run

  # List the destination's archives
  tarkeep list --config tarkeep.conf

  # Restore one archive
  tarkeep restore backups/backup-2024-01-10-031500.tar.gz /srv/restore

  # Apply retention only
  tarkeep prune --config tarkeep.conf`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Any fatal condition has already been logged
// as an ERROR by the application layer; here it only decides the exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// SetVersionInfo records build metadata for the version command
func SetVersionInfo(version, built string) {
	versionString = version
	buildTime = built
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings record file (key=value lines)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "simulate only: log intended actions, mutate nothing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append log lines to this file as well")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
}

// newApplication validates flags and constructs the application for a command
func newApplication() (*application.Application, error) {
	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}
	return application.New(application.Options{
		ConfigFile: cfgFile,
		DryRun:     dryRun,
		Verbose:    verbose,
		Quiet:      quiet,
		LogFile:    logFile,
		NoColor:    noColor,
	})
}

package cmd

import (
	"github.com/spf13/cobra"
)

// backupCmd runs the full backup pipeline for one source directory
var backupCmd = &cobra.Command{
	Use:   "backup <source-dir>",
	Short: "Archive a source directory into the destination and rotate old snapshots",
	Long: `Backup acquires the run lock, packages the source directory into a
compressed tar archive named after the current timestamp, seals it with a
checksum sidecar, verifies the seal, applies the retention policy to the
destination, and releases the lock.

A verification failure is reported and exits non-zero, but the archive is
left on disk for inspection and rotation still runs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.RunBackup(args[0])
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

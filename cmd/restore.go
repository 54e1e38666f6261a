package cmd

import (
	"github.com/spf13/cobra"
)

// restoreCmd extracts a chosen archive into a target directory
var restoreCmd = &cobra.Command{
	Use:   "restore <archive> <target-dir>",
	Short: "Extract an archive into a target directory",
	Long: `Restore acquires the run lock and extracts the full archive contents into
the target directory, creating it if absent and overwriting any colliding
entries. Relative paths are preserved as stored.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.RunRestore(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

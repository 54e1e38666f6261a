package cmd

import (
	"github.com/spf13/cobra"
)

// pruneCmd applies retention without creating a new archive
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy to the destination without backing up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.RunPrune()
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

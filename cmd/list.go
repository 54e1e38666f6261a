package cmd

import (
	"github.com/spf13/cobra"
)

// listCmd enumerates the destination's archives
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the destination's archives, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.RunList()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
)

// verifyCmd re-checks a single archive against its digest record
var verifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Verify an archive's checksum seal and container structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.RunVerify(args[0])
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

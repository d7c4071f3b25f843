package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/omiassist/api"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), api.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

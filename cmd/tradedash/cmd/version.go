package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradedash/api"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Long:        `Display the current version of the tradedash CLI.`,
	Annotations: map[string]string{annSkipConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tradedash version %s\n", api.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "API service name: %s\n", api.ServiceName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

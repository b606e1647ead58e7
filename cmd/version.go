package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information and exit",
	Run:   versionRun,
}

func init() {
	RootCmd.AddCommand(versionCmd)
}

func versionRun(cmd *cobra.Command, args []string) {
	v := Version
	if v == "" {
		v = "(devel)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
}

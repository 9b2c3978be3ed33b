package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/pitchpilot"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pitchpilot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pitchpilot version %s\n", strings.TrimSpace(pitchpilot.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

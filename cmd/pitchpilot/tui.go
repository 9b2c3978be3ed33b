package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/pitchpilot/internal/cli"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open an interactive session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		return cli.RunInteractive(sc, cfg, stackOptions(cmd)...)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().Bool("demo", false, "Use the built-in demo backend instead of the configured one")

	// Bare "pitchpilot" opens the terminal app.
	rootCmd.RunE = tuiCmd.RunE
	rootCmd.Flags().Bool("demo", false, "Use the built-in demo backend instead of the configured one")
}

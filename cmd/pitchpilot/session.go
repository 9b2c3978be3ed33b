package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/pitchpilot/internal/cli"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect stored session snapshots",
	Long:  `List, show and remove the session snapshots kept by the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cli.ListSessions(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

var sessionShowCmd = &cobra.Command{
	Use:     "show <session-id>",
	Aliases: []string{"inspect"},
	Short:   "Print the snapshot of a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cli.ShowSession(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cli.RemoveSessions(cmd.Context(), cfg, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}

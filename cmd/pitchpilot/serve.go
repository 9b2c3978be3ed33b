package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/pitchpilot/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host sessions over HTTP",
	Long: `Starts the HTTP API: create sessions, request generations and deploys,
navigate artifacts and follow state changes over Server-Sent Events.
The OpenAPI document is served at /openapi.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("metrics") {
			cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		stack, err := cli.NewStack(cfg, logger, stackOptions(cmd)...)
		if err != nil {
			return err
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		return cli.Serve(sc, stack, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics (overrides config)")
	serveCmd.Flags().Bool("demo", false, "Use the built-in demo backend instead of the configured one")
}

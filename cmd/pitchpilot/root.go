package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pitchpilot/internal/cli"
	"github.com/aretw0/pitchpilot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "pitchpilot",
	Short: "PitchPilot turns a plain-language requirement into a deployed website",
	Long: `PitchPilot sends your requirement to a generation backend, plays the returned
files back chunk by chunk into a live preview and deploys the result.

Run it interactively (tui), once from a script (run), or host sessions for
other clients over HTTP (serve) and the Model Context Protocol (mcp).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: ./"+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().String("backend", "", "Generation backend URL (overrides config)")
	rootCmd.PersistentFlags().String("store", "", "Snapshot store driver: memory, file, redis or sqlite (overrides config)")
}

// loadConfig reads the config named by the flags and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend.URL, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Driver, _ = cmd.Flags().GetString("store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.NewLogger(cfg.Log.Level, debug)
}

// stackOptions honours --demo on commands that define it.
func stackOptions(cmd *cobra.Command) []cli.StackOption {
	demo, _ := cmd.Flags().GetBool("demo")
	if !demo {
		return nil
	}
	backend := cli.DemoBackend()
	return []cli.StackOption{cli.WithBackend(backend, backend)}
}

// buildStack loads config, logger and the wired stack for cmd.
func buildStack(cmd *cobra.Command) (*cli.Stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return cli.NewStack(cfg, logger, stackOptions(cmd)...)
}

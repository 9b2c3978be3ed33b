package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/pitchpilot/internal/cli"
	"github.com/aretw0/pitchpilot/internal/presentation/tui"
)

var runCmd = &cobra.Command{
	Use:   `run ["requirement"]`,
	Short: "Generate a site once and print its files",
	Long: `Sends the requirement to the backend, prints every generated file and
optionally deploys the result. Reads the requirement from stdin when no
argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requirement, err := readRequirement(cmd, args)
		if err != nil {
			return err
		}
		deploy, _ := cmd.Flags().GetBool("deploy")
		jsonMode, _ := cmd.Flags().GetBool("json")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		stack, err := buildStack(cmd)
		if err != nil {
			return err
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		defer stack.Close(context.Background())

		if !jsonMode {
			tui.PrintBanner(cmd.ErrOrStderr())
		}
		return cli.Run(sc, stack, cli.RunOptions{
			Requirement: requirement,
			Deploy:      deploy,
			JSON:        jsonMode,
			Timeout:     timeout,
			Out:         cmd.OutOrStdout(),
		})
	},
}

func readRequirement(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	requirement := strings.TrimSpace(string(data))
	if requirement == "" {
		return "", errors.New("no requirement given")
	}
	return requirement, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("deploy", false, "Deploy the generated site")
	runCmd.Flags().Bool("json", false, "Emit NDJSON events instead of text")
	runCmd.Flags().Duration("timeout", 0, "Give up after this long (0 waits forever)")
	runCmd.Flags().Bool("demo", false, "Use the built-in demo backend instead of the configured one")
}

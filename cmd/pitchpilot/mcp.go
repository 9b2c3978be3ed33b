package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/pitchpilot/internal/cli"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts PitchPilot as an MCP server so AI agents can open sessions,
generate and deploy sites as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		stack, err := buildStack(cmd)
		if err != nil {
			return err
		}
		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()
		return cli.ServeMCP(sc, stack, transport, port)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", cli.TransportStdio, "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().Bool("demo", false, "Use the built-in demo backend instead of the configured one")
}

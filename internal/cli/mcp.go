package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/pitchpilot/pkg/adapters/mcp"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP exposes the stack's sessions as MCP tools until sc is cancelled
// or stdin closes.
func ServeMCP(sc *SignalContext, stack *Stack, transport string, port int) error {
	srv := mcp.NewServer(stack.Sessions, stack.Logger)
	defer stack.Close(context.WithoutCancel(sc))

	switch transport {
	case TransportStdio:
		// Stdout carries JSON-RPC.
		log.SetOutput(os.Stderr)
		stack.Logger.Info("mcp server starting", "transport", transport)
		return srv.ServeStdio()
	case TransportSSE:
		stack.Logger.Info("mcp server starting", "transport", transport, "port", port)
		if err := srv.ServeSSE(sc, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		stack.Logger.Info("mcp server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport %q (supported: %s, %s)", transport, TransportStdio, TransportSSE)
	}
}

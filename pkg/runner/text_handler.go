package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
// Artifacts are fenced (see Fence) before being handed to the renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text output.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Status(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[%s]\n", msg)
	return err
}

func (h *TextHandler) Artifact(ctx context.Context, name, content string, opaque bool) error {
	header := "── " + name + " ──"
	if opaque {
		header += " (not text)"
	}
	if _, err := fmt.Fprintln(h.Writer, header); err != nil {
		return err
	}

	output := content
	if h.Renderer != nil && !opaque {
		if rendered, err := h.Renderer(Fence(name, content)); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(output, "\n"))
	return err
}

func (h *TextHandler) Result(ctx context.Context, snap *domain.Snapshot) error {
	switch {
	case snap.Deploy.Phase == domain.DeployDeployed:
		_, err := fmt.Fprintf(h.Writer, "Deployed: %s\n", snap.Deploy.URL)
		return err
	case snap.Deploy.Phase == domain.DeployFailed:
		_, err := fmt.Fprintf(h.Writer, "Deploy failed: %s\n", snap.Deploy.Message)
		return err
	case snap.LastError != "":
		_, err := fmt.Fprintf(h.Writer, "Note: %s\n", snap.LastError)
		return err
	}
	_, err := fmt.Fprintf(h.Writer, "%d artifacts revealed.\n", len(snap.Registry))
	return err
}

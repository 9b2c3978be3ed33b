package tui

import (
	"github.com/charmbracelet/glamour"

	"github.com/aretw0/pitchpilot/pkg/runner"
)

// NewRenderer returns a glamour markdown renderer wrapping at width.
// A width of zero keeps glamour's default.
func NewRenderer(width int) (runner.ContentRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

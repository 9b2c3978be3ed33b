package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/pitchpilot/pkg/ports"
)

// projector mirrors the active content slot into every viewport.
// It runs on the session loop, so renders happen in slot order.
type projector struct {
	viewports []ports.Viewport
	logger    *slog.Logger
}

func newProjector(viewports []ports.Viewport, logger *slog.Logger) *projector {
	return &projector{viewports: viewports, logger: logger}
}

func (p *projector) project(ctx context.Context, content string) {
	for i, vp := range p.viewports {
		if err := vp.Render(ctx, content); err != nil {
			// A broken preview never affects playback.
			p.logger.Warn("viewport render failed", "viewport", i, "err", err)
		}
	}
}

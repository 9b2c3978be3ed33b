package ports

import "context"

// Viewport is an isolated preview surface.
// Render fully replaces the displayed document with content.
type Viewport interface {
	Render(ctx context.Context, content string) error
}

// ViewportFunc adapts a function to the Viewport interface.
type ViewportFunc func(ctx context.Context, content string) error

// Render calls f(ctx, content).
func (f ViewportFunc) Render(ctx context.Context, content string) error {
	return f(ctx, content)
}

package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aretw0/pitchpilot/internal/config"
	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/internal/presentation/tui"
)

// RunInteractive opens a session in the full-screen terminal app.
func RunInteractive(ctx context.Context, cfg *config.Config, stackOpts ...StackOption) error {
	feed := tui.NewFeed()

	// The alternate screen owns the terminal; logs would tear it.
	stack, err := NewStack(cfg, logging.NewNop(), append(stackOpts, WithHooks(feed.Hooks()))...)
	if err != nil {
		return err
	}
	defer stack.Close(context.WithoutCancel(ctx))

	sess, err := stack.OpenSession(ctx, feed)
	if err != nil {
		return err
	}

	var appOpts []tui.AppOption
	if tui.IsTerminal(os.Stdout) {
		width := tui.Width(os.Stdout, 100) - 40
		if render, err := tui.NewRenderer(max(width, 20)); err == nil {
			appOpts = append(appOpts, tui.WithRenderer(render))
		}
	}

	app := tui.NewApp(ctx, sess, feed, appOpts...)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return handleExecutionError(fmt.Errorf("terminal app failed: %w", err))
	}
	return nil
}

package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/aretw0/pitchpilot/internal/presentation/tui"
	"github.com/aretw0/pitchpilot/pkg/runner"
)

// RunOptions configures a one-shot generation from the command line.
type RunOptions struct {
	Requirement string
	Deploy      bool
	JSON        bool
	Timeout     time.Duration
	Out         io.Writer
}

// Run generates a site for opts.Requirement in a fresh session, prints every
// artifact and optionally deploys it.
func Run(ctx context.Context, stack *Stack, opts RunOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	sess, err := stack.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer stack.Sessions.Close(context.WithoutCancel(ctx), sess.ID())

	r := runner.NewRunner(
		runner.WithLogger(stack.Logger),
		runner.WithHandler(newHandler(out, opts.JSON)),
		runner.WithDeploy(opts.Deploy),
		runner.WithTimeout(opts.Timeout),
	)
	_, err = r.Run(ctx, sess, opts.Requirement)
	return handleExecutionError(err)
}

// newHandler picks NDJSON output, or text rendered through glamour when out
// is a terminal.
func newHandler(out io.Writer, jsonMode bool) runner.IOHandler {
	if jsonMode {
		return runner.NewJSONHandler(out)
	}
	var opts []runner.TextHandlerOption
	if f, ok := out.(*os.File); ok && tui.IsTerminal(f) {
		if render, err := tui.NewRenderer(tui.Width(f, 80)); err == nil {
			opts = append(opts, runner.WithTextHandlerRenderer(render))
		}
	}
	return runner.NewTextHandler(out, opts...)
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/pkg/domain"
)

var (
	// ErrGenerationFailed is returned when a run ends without any revealed artifact.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrDeployFailed is returned when the requested deploy ended in the failed state.
	ErrDeployFailed = errors.New("deploy failed")
)

// Session is the part of a playback session the runner drives.
type Session interface {
	RequestGeneration(ctx context.Context, requirement string) error
	RequestDeploy(ctx context.Context) error
	Wait(ctx context.Context) (*domain.Snapshot, error)
}

// Runner drives one session headlessly: submit, wait for playback, present
// every revealed artifact, and optionally deploy.
type Runner struct {
	// Handler is the strategy for output. Defaults to a TextHandler on Stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Deploy requests a deploy once playback completed.
	Deploy bool

	// Timeout bounds the whole run when positive.
	Timeout time.Duration
}

// NewRunner creates a new Runner writing text to Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Handler: NewTextHandler(os.Stdout),
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run submits requirement to sess and presents the outcome.
// It returns the final snapshot, also when the run failed after submission.
func (r *Runner) Run(ctx context.Context, sess Session, requirement string) (*domain.Snapshot, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	handler := r.Handler
	if handler == nil {
		handler = NewTextHandler(os.Stdout)
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	clean, err := SanitizeInput(requirement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if err := handler.Status(ctx, "generating"); err != nil {
		return nil, err
	}
	if err := sess.RequestGeneration(ctx, clean); err != nil {
		return nil, err
	}
	snap, err := sess.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for playback: %w", err)
	}
	logger.Debug("playback settled", "phase", snap.Playback.Phase, "artifacts", len(snap.Registry))

	if snap.Playback.Phase != domain.PhaseComplete {
		if err := handler.Result(ctx, snap); err != nil {
			return snap, err
		}
		return snap, fmt.Errorf("%w: %s", ErrGenerationFailed, snap.LastError)
	}

	for _, name := range snap.Registry {
		content, _ := snap.Bundle.Content(name)
		if err := handler.Artifact(ctx, name, content, snap.Bundle.IsOpaque(name)); err != nil {
			return snap, err
		}
	}

	if r.Deploy {
		snap, err = r.deploy(ctx, handler, sess)
		if err != nil {
			return snap, err
		}
	}

	if err := handler.Result(ctx, snap); err != nil {
		return snap, err
	}
	if snap.Deploy.Phase == domain.DeployFailed {
		return snap, fmt.Errorf("%w: %s", ErrDeployFailed, snap.Deploy.Message)
	}
	return snap, nil
}

func (r *Runner) deploy(ctx context.Context, handler IOHandler, sess Session) (*domain.Snapshot, error) {
	if err := handler.Status(ctx, "deploying"); err != nil {
		return nil, err
	}
	if err := sess.RequestDeploy(ctx); err != nil {
		return nil, err
	}
	snap, err := sess.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for deploy: %w", err)
	}
	return snap, nil
}

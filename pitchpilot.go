package pitchpilot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/internal/runtime"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
)

// Session is a running playback session. See Engine.Open.
type Session = runtime.Session

// Engine is the high-level entry point for the PitchPilot library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	generator   ports.Generator
	deployer    ports.Deployer
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithChunkSize sets how many characters each reveal step appends (default: 100).
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithChunkSize(n))
	}
}

// WithEntryPoint configures the artifact revealed first (default: "index.html").
func WithEntryPoint(name string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEntryPoint(name))
	}
}

// WithRevealInterval paces the reveal with a delay between steps.
func WithRevealInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRevealInterval(d))
	}
}

// WithRedeploy allows deploying again after a successful deploy.
func WithRedeploy(allow bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRedeploy(allow))
	}
}

// WithViewports adds preview surfaces shared by every session.
func WithViewports(viewports ...ports.Viewport) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithViewports(viewports...))
	}
}

// New initializes a new PitchPilot Engine talking to the given backend.
func New(generator ports.Generator, deployer ports.Deployer, opts ...Option) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if deployer == nil {
		return nil, errors.New("deployer is required")
	}

	eng := &Engine{generator: generator, deployer: deployer}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(generator, deployer, runtimeOpts...)
	return eng, nil
}

// Open starts a new idle session showing the welcome document.
// Extra viewports only receive this session's content.
func (e *Engine) Open(ctx context.Context, sessionID string, viewports ...ports.Viewport) *Session {
	return e.runtime.Open(ctx, sessionID, viewports...)
}

// ChunkSize returns the configured reveal chunk size.
func (e *Engine) ChunkSize() int {
	return e.runtime.ChunkSize()
}

// EntryPoint returns the artifact name revealed first.
func (e *Engine) EntryPoint() string {
	return e.runtime.EntryPoint()
}

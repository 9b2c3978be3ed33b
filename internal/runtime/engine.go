package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
)

// Engine is the core playback engine. It holds the remote collaborators and the
// reveal configuration, and opens independent sessions against them.
type Engine struct {
	generator ports.Generator
	deployer  ports.Deployer

	chunkSize      int
	entryPoint     string
	revealInterval time.Duration
	allowRedeploy  bool

	viewports []ports.Viewport
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks for every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithChunkSize sets the number of runes appended per reveal step.
// Values below 1 keep the default.
func WithChunkSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithEntryPoint sets the artifact name revealed first (default: "index.html").
func WithEntryPoint(name string) EngineOption {
	return func(e *Engine) {
		if name != "" {
			e.entryPoint = name
		}
	}
}

// WithRevealInterval paces reveal steps. Zero reveals as fast as the session loop allows.
func WithRevealInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.revealInterval = d
		}
	}
}

// WithRedeploy allows requesting a new deploy once a previous one succeeded.
func WithRedeploy(allow bool) EngineOption {
	return func(e *Engine) {
		e.allowRedeploy = allow
	}
}

// WithViewports adds preview surfaces that every session renders into.
func WithViewports(viewports ...ports.Viewport) EngineOption {
	return func(e *Engine) {
		e.viewports = append(e.viewports, viewports...)
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a new engine with dependencies.
func NewEngine(generator ports.Generator, deployer ports.Deployer, opts ...EngineOption) *Engine {
	e := &Engine{
		generator:  generator,
		deployer:   deployer,
		chunkSize:  domain.DefaultChunkSize,
		entryPoint: domain.DefaultEntryPoint,
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkSize returns the configured reveal chunk size.
func (e *Engine) ChunkSize() int {
	return e.chunkSize
}

// EntryPoint returns the configured entry-point artifact name.
func (e *Engine) EntryPoint() string {
	return e.entryPoint
}

// Open starts a new idle session. Extra viewports receive only this session's content.
// The session runs until Close is called or ctx is cancelled.
func (e *Engine) Open(ctx context.Context, sessionID string, viewports ...ports.Viewport) *Session {
	all := make([]ports.Viewport, 0, len(e.viewports)+len(viewports))
	all = append(all, e.viewports...)
	all = append(all, viewports...)

	s := newSession(ctx, e, sessionID, all)
	go s.loop()
	return s
}

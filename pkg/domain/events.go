package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventGenerationStart EventType = "generation_start"
	EventGenerationEnd   EventType = "generation_end"
	EventArtifactEnter   EventType = "artifact_enter"
	EventArtifactLeave   EventType = "artifact_leave"
	EventRevealChunk     EventType = "reveal_chunk"
	EventDeployStart     EventType = "deploy_start"
	EventDeployEnd       EventType = "deploy_end"
	EventStateChange     EventType = "state_change"
)

// Outcome classifies how a remote operation ended.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeEmpty      Outcome = "empty"
	OutcomeFailure    Outcome = "failure"
	OutcomeMissingURL Outcome = "missing_url"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Cycle     int       `json:"cycle"`
}

// GenerationEvent represents the start or end of a generate request.
type GenerationEvent struct {
	EventBase
	Requirement string        `json:"requirement,omitempty"`
	Outcome     Outcome       `json:"outcome,omitempty"`
	Artifacts   int           `json:"artifacts,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Err         error         `json:"-"`
}

// ArtifactEvent represents entry into or completion of one artifact's reveal.
type ArtifactEvent struct {
	EventBase
	Artifact string `json:"artifact"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Size     int    `json:"size"`
	Opaque   bool   `json:"opaque,omitempty"`
}

// ChunkEvent represents one reveal step.
type ChunkEvent struct {
	EventBase
	Artifact string `json:"artifact"`
	Step     int    `json:"step"`
	Revealed int    `json:"revealed"`
	Size     int    `json:"size"`
}

// DeployEvent represents the start or end of a deploy request.
type DeployEvent struct {
	EventBase
	Outcome  Outcome       `json:"outcome,omitempty"`
	URL      string        `json:"url,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run on the session's owning goroutine and must not call back into the session.
type LifecycleHooks struct {
	OnGenerationStart func(context.Context, *GenerationEvent)
	OnGenerationEnd   func(context.Context, *GenerationEvent)
	OnArtifactEnter   func(context.Context, *ArtifactEvent)
	OnArtifactLeave   func(context.Context, *ArtifactEvent)
	OnRevealChunk     func(context.Context, *ChunkEvent)
	OnDeployStart     func(context.Context, *DeployEvent)
	OnDeployEnd       func(context.Context, *DeployEvent)
	// OnStateChange receives a copy of the previous and current snapshot
	// after every command or reveal step that changed the session.
	OnStateChange func(ctx context.Context, old, new *Snapshot)
}

// ComposeHooks merges several hook sets; callbacks run in argument order.
func ComposeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnGenerationStart = chain(out.OnGenerationStart, h.OnGenerationStart)
		out.OnGenerationEnd = chain(out.OnGenerationEnd, h.OnGenerationEnd)
		out.OnArtifactEnter = chain(out.OnArtifactEnter, h.OnArtifactEnter)
		out.OnArtifactLeave = chain(out.OnArtifactLeave, h.OnArtifactLeave)
		out.OnRevealChunk = chain(out.OnRevealChunk, h.OnRevealChunk)
		out.OnDeployStart = chain(out.OnDeployStart, h.OnDeployStart)
		out.OnDeployEnd = chain(out.OnDeployEnd, h.OnDeployEnd)
		out.OnStateChange = chain2(out.OnStateChange, h.OnStateChange)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chain2(a, b func(context.Context, *Snapshot, *Snapshot)) func(context.Context, *Snapshot, *Snapshot) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, old, new *Snapshot) {
		a(ctx, old, new)
		b(ctx, old, new)
	}
}

package runtime

import (
	"context"
	"time"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

func (s *Session) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: s.engine.now(),
		Type:      t,
		SessionID: s.id,
		Cycle:     s.state.Cycle,
	}
}

func (s *Session) emitGenerationStart(ctx context.Context, requirement string) {
	if h := s.engine.hooks.OnGenerationStart; h != nil {
		h(ctx, &domain.GenerationEvent{
			EventBase:   s.base(domain.EventGenerationStart),
			Requirement: requirement,
		})
	}
}

func (s *Session) emitGenerationEnd(ctx context.Context, outcome domain.Outcome, artifacts int, d time.Duration, err error) {
	if h := s.engine.hooks.OnGenerationEnd; h != nil {
		h(ctx, &domain.GenerationEvent{
			EventBase: s.base(domain.EventGenerationEnd),
			Outcome:   outcome,
			Artifacts: artifacts,
			Duration:  d,
			Err:       err,
		})
	}
}

func (s *Session) artifactEvent(t domain.EventType, c *revealCursor, opaque bool) *domain.ArtifactEvent {
	return &domain.ArtifactEvent{
		EventBase: s.base(t),
		Artifact:  c.name,
		Index:     c.index,
		Total:     len(s.state.Order),
		Size:      len(c.content),
		Opaque:    opaque,
	}
}

func (s *Session) emitArtifactEnter(ctx context.Context, c *revealCursor, opaque bool) {
	if h := s.engine.hooks.OnArtifactEnter; h != nil {
		h(ctx, s.artifactEvent(domain.EventArtifactEnter, c, opaque))
	}
}

func (s *Session) emitArtifactLeave(ctx context.Context, c *revealCursor) {
	if h := s.engine.hooks.OnArtifactLeave; h != nil {
		h(ctx, s.artifactEvent(domain.EventArtifactLeave, c, s.state.Bundle.IsOpaque(c.name)))
	}
}

func (s *Session) emitRevealChunk(ctx context.Context, c *revealCursor) {
	if h := s.engine.hooks.OnRevealChunk; h != nil {
		h(ctx, &domain.ChunkEvent{
			EventBase: s.base(domain.EventRevealChunk),
			Artifact:  c.name,
			Step:      c.steps,
			Revealed:  c.offset,
			Size:      len(c.content),
		})
	}
}

func (s *Session) emitDeployStart(ctx context.Context) {
	if h := s.engine.hooks.OnDeployStart; h != nil {
		h(ctx, &domain.DeployEvent{EventBase: s.base(domain.EventDeployStart)})
	}
}

func (s *Session) emitDeployEnd(ctx context.Context, outcome domain.Outcome, url string, d time.Duration, err error) {
	if h := s.engine.hooks.OnDeployEnd; h != nil {
		h(ctx, &domain.DeployEvent{
			EventBase: s.base(domain.EventDeployEnd),
			Outcome:   outcome,
			URL:       url,
			Duration:  d,
			Err:       err,
		})
	}
}

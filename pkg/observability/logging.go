package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured line per event.
// Reveal chunks are logged at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGenerationStart: func(ctx context.Context, e *domain.GenerationEvent) {
			logger.InfoContext(ctx, string(e.Type), base(e.EventBase)...)
		},
		OnGenerationEnd: func(ctx context.Context, e *domain.GenerationEvent) {
			attrs := append(base(e.EventBase),
				"outcome", e.Outcome,
				"artifacts", e.Artifacts,
				"duration", e.Duration,
			)
			if e.Err != nil {
				logger.WarnContext(ctx, string(e.Type), append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, string(e.Type), attrs...)
		},
		OnArtifactEnter: func(ctx context.Context, e *domain.ArtifactEvent) {
			logger.InfoContext(ctx, string(e.Type), append(base(e.EventBase),
				"artifact", e.Artifact,
				"index", e.Index,
				"total", e.Total,
				"size", e.Size,
				"opaque", e.Opaque,
			)...)
		},
		OnArtifactLeave: func(ctx context.Context, e *domain.ArtifactEvent) {
			logger.InfoContext(ctx, string(e.Type), append(base(e.EventBase), "artifact", e.Artifact)...)
		},
		OnRevealChunk: func(ctx context.Context, e *domain.ChunkEvent) {
			logger.DebugContext(ctx, string(e.Type), append(base(e.EventBase),
				"artifact", e.Artifact,
				"step", e.Step,
				"revealed", e.Revealed,
				"size", e.Size,
			)...)
		},
		OnDeployStart: func(ctx context.Context, e *domain.DeployEvent) {
			logger.InfoContext(ctx, string(e.Type), base(e.EventBase)...)
		},
		OnDeployEnd: func(ctx context.Context, e *domain.DeployEvent) {
			attrs := append(base(e.EventBase),
				"outcome", e.Outcome,
				"url", e.URL,
				"duration", e.Duration,
			)
			if e.Err != nil {
				logger.WarnContext(ctx, string(e.Type), append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, string(e.Type), attrs...)
		},
	}
}

func base(e domain.EventBase) []any {
	return []any{"session_id", e.SessionID, "cycle", e.Cycle}
}

package runtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

type generateResult struct {
	cycle    int
	bundle   domain.Bundle
	err      error
	duration time.Duration
}

// RequestGeneration submits a requirement to the generation backend.
//
// Blank requirements return domain.ErrInvalidInput and requests made while a
// generation, reveal or deploy is outstanding return domain.ErrRequestInFlight.
// Neither changes state nor reaches the backend. On acceptance the previous
// bundle and everything derived from it are discarded and the call returns
// without waiting for the backend; use Wait to block until playback settles.
func (s *Session) RequestGeneration(ctx context.Context, requirement string) error {
	return s.do(ctx, func(loopCtx context.Context) error {
		return s.startGeneration(loopCtx, requirement)
	})
}

func (s *Session) startGeneration(ctx context.Context, requirement string) error {
	if strings.TrimSpace(requirement) == "" {
		return domain.ErrInvalidInput
	}
	if s.state.Busy() || s.state.Deploy.Phase == domain.DeployDeploying {
		s.logger.Debug("generation refused", "phase", s.state.Playback.Phase, "deploy", s.state.Deploy.Phase)
		return domain.ErrRequestInFlight
	}

	s.reveal = nil
	s.stopTimer()
	s.state.Cycle++
	s.state.Bundle = domain.NewBundle(nil)
	s.state.Order = nil
	s.state.Registry = []string{}
	s.state.Focus = ""
	s.state.Owner = domain.OwnerSequencer
	s.state.Deploy = domain.Deploy{Phase: domain.DeployNotReady}
	s.state.LastError = ""
	s.state.Playback = domain.Playback{Phase: domain.PhaseGenerating}
	s.touch()
	s.setActive(ctx, "")

	req := domain.GenerateRequest{Requirement: requirement}
	if s.state.Theme != nil {
		t := *s.state.Theme
		req.Theme = &t
	}

	cycle := s.state.Cycle
	s.emitGenerationStart(ctx, requirement)
	s.logger.Info("generation requested", "cycle", cycle)

	go func() {
		start := time.Now()
		bundle, err := s.engine.generator.Generate(ctx, req)
		s.post(generateResult{cycle: cycle, bundle: bundle, err: err, duration: time.Since(start)})
	}()
	return nil
}

func (r generateResult) apply(ctx context.Context, s *Session) {
	if r.cycle != s.state.Cycle || s.state.Playback.Phase != domain.PhaseGenerating {
		s.logger.Debug("discarding stale generation result", "cycle", r.cycle)
		return
	}

	if r.err != nil {
		s.state.Playback = domain.Playback{Phase: domain.PhaseIdle}
		s.state.LastError = r.err.Error()
		s.touch()
		s.logger.Warn("generation failed", "cycle", r.cycle, "err", r.err)
		s.emitGenerationEnd(ctx, domain.OutcomeFailure, 0, r.duration, r.err)
		return
	}

	// The backend answered: the input field has served its purpose.
	s.state.Draft = ""

	if r.bundle.Len() == 0 {
		s.state.Playback = domain.Playback{Phase: domain.PhaseIdle}
		s.state.LastError = domain.ErrEmptyResult.Error()
		s.touch()
		s.logger.Info("generation returned no artifacts", "cycle", r.cycle)
		s.emitGenerationEnd(ctx, domain.OutcomeEmpty, 0, r.duration, domain.ErrEmptyResult)
		return
	}

	s.state.Bundle = r.bundle.Clone()
	s.state.Order = domain.RevealOrder(s.state.Bundle, s.engine.entryPoint)
	s.touch()
	s.logger.Info("bundle received", "cycle", r.cycle, "artifacts", r.bundle.Len())
	s.emitGenerationEnd(ctx, domain.OutcomeSuccess, r.bundle.Len(), r.duration, nil)

	s.playFrom(ctx, 0)
}

// isTransport reports whether err came from the transport layer.
func isTransport(err error) bool {
	return errors.Is(err, domain.ErrTransport)
}

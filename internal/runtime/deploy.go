package runtime

import (
	"context"
	"time"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

type deployResult struct {
	cycle    int
	url      string
	err      error
	duration time.Duration
}

// RequestDeploy publishes the current bundle.
//
// It is accepted once playback completed (ready) and as a retry after a failed
// deploy. A successful deploy may only be repeated when the engine was built
// with WithRedeploy. Every other call returns domain.ErrDeployNotReady without
// reaching the backend.
func (s *Session) RequestDeploy(ctx context.Context) error {
	return s.do(ctx, s.startDeploy)
}

func (s *Session) canDeploy() bool {
	switch s.state.Deploy.Phase {
	case domain.DeployReady, domain.DeployFailed:
		return true
	case domain.DeployDeployed:
		return s.engine.allowRedeploy
	default:
		return false
	}
}

func (s *Session) startDeploy(ctx context.Context) error {
	if !s.canDeploy() {
		s.logger.Debug("deploy refused", "deploy", s.state.Deploy.Phase)
		return domain.ErrDeployNotReady
	}

	s.state.Deploy = domain.Deploy{Phase: domain.DeployDeploying}
	s.state.LastError = ""
	s.touch()

	cycle := s.state.Cycle
	s.emitDeployStart(ctx)
	s.logger.Info("deploy requested", "cycle", cycle)

	go func() {
		start := time.Now()
		url, err := s.engine.deployer.Deploy(ctx)
		s.post(deployResult{cycle: cycle, url: url, err: err, duration: time.Since(start)})
	}()
	return nil
}

func (r deployResult) apply(ctx context.Context, s *Session) {
	if r.cycle != s.state.Cycle || s.state.Deploy.Phase != domain.DeployDeploying {
		s.logger.Debug("discarding stale deploy result", "cycle", r.cycle)
		return
	}

	switch {
	case r.err != nil:
		s.state.Deploy = domain.Deploy{Phase: domain.DeployFailed, Message: r.err.Error()}
		s.state.LastError = r.err.Error()
		s.logger.Warn("deploy failed", "cycle", r.cycle, "transport", isTransport(r.err), "err", r.err)
		s.emitDeployEnd(ctx, domain.OutcomeFailure, "", r.duration, r.err)
	case r.url == "":
		s.state.Deploy = domain.Deploy{Phase: domain.DeployReady}
		s.state.LastError = domain.ErrMissingDeployURL.Error()
		s.logger.Warn("deploy returned no URL", "cycle", r.cycle)
		s.emitDeployEnd(ctx, domain.OutcomeMissingURL, "", r.duration, domain.ErrMissingDeployURL)
	default:
		s.state.Deploy = domain.Deploy{Phase: domain.DeployDeployed, URL: r.url}
		s.logger.Info("deployed", "cycle", r.cycle, "url", r.url)
		s.emitDeployEnd(ctx, domain.OutcomeSuccess, r.url, r.duration, nil)
	}
	s.touch()
}

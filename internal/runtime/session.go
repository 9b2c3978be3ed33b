package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
)

// Session owns the state of one playback session.
//
// All mutations of the snapshot (playback, registry, active content, deploy) happen
// on a single goroutine started by Engine.Open. Public methods send commands to that
// goroutine and wait for the reply, so callers may use a Session from any goroutine.
type Session struct {
	engine *Engine
	id     string
	logger *slog.Logger

	cmds    chan command
	results chan result
	done    chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	// Owned by the loop goroutine.
	state     *domain.Snapshot
	reveal    *revealCursor
	preview   *projector
	waiters   []chan *domain.Snapshot
	tickTimer *time.Timer
}

type command struct {
	fn    func(ctx context.Context) error
	reply chan error
}

// result is posted back to the loop by goroutines performing remote calls.
type result interface {
	apply(ctx context.Context, s *Session)
}

// readyTick is always readable; it drives unpaced reveal steps.
var readyTick = func() <-chan time.Time {
	ch := make(chan time.Time)
	close(ch)
	return ch
}()

func newSession(parent context.Context, e *Engine, id string, viewports []ports.Viewport) *Session {
	logger := e.logger.With("session_id", id)
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ctx:     ctx,
		cancel:  cancel,
		engine:  e,
		id:      id,
		logger:  logger,
		cmds:    make(chan command),
		results: make(chan result, 2),
		done:    make(chan struct{}),
		state:   domain.NewSnapshot(id),
		preview: newProjector(viewports, logger),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session loop has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) loop() {
	ctx := s.ctx
	defer close(s.done)
	defer s.cancel()

	s.preview.project(ctx, s.state.Active)

	for {
		var tick <-chan time.Time
		if s.reveal != nil {
			tick = s.nextTick()
		}

		select {
		case <-ctx.Done():
			s.stopTimer()
			s.logger.Debug("session loop stopped")
			return
		case cmd := <-s.cmds:
			before := s.beginChange()
			err := cmd.fn(ctx)
			s.endChange(ctx, before)
			cmd.reply <- err
		case res := <-s.results:
			before := s.beginChange()
			res.apply(ctx, s)
			s.endChange(ctx, before)
		case <-tick:
			s.tickTimer = nil
			before := s.beginChange()
			s.step(ctx)
			s.endChange(ctx, before)
		}
	}
}

// nextTick returns the channel that fires when the next reveal step is due.
func (s *Session) nextTick() <-chan time.Time {
	if s.engine.revealInterval <= 0 {
		return readyTick
	}
	if s.tickTimer == nil {
		s.tickTimer = time.NewTimer(s.engine.revealInterval)
	}
	return s.tickTimer.C
}

func (s *Session) stopTimer() {
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
}

func (s *Session) beginChange() *domain.Snapshot {
	if s.engine.hooks.OnStateChange == nil {
		return nil
	}
	return s.state.Clone()
}

func (s *Session) endChange(ctx context.Context, before *domain.Snapshot) {
	if before != nil && domain.Diff(before, s.state) != nil {
		s.engine.hooks.OnStateChange(ctx, before, s.state.Clone())
	}
	s.flushWaiters()
}

func (s *Session) touch() {
	s.state.UpdatedAt = s.engine.now()
}

// setActive is the only writer of the active content slot.
func (s *Session) setActive(ctx context.Context, content string) {
	if s.state.Active == content {
		return
	}
	s.state.Active = content
	s.touch()
	s.preview.project(ctx, content)
}

// post hands a remote result to the loop, giving up once the session stopped.
func (s *Session) post(r result) {
	select {
	case s.results <- r:
	case <-s.done:
	}
}

func (s *Session) flushWaiters() {
	if len(s.waiters) == 0 || !s.state.Settled() {
		return
	}
	for _, w := range s.waiters {
		w <- s.state.Clone()
	}
	s.waiters = nil
}

// do runs fn on the loop goroutine and returns its error.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		return domain.ErrSessionClosed
	}
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := s.do(ctx, func(context.Context) error {
		snap = s.state.Clone()
		return nil
	})
	return snap, err
}

// Inspect runs fn on the session goroutine with a copy of the current state.
// No state change interleaves with fn, so listeners registered inside it observe
// exactly the changes that follow snap. fn must not call back into the session.
func (s *Session) Inspect(ctx context.Context, fn func(snap *domain.Snapshot)) error {
	return s.do(ctx, func(context.Context) error {
		fn(s.state.Clone())
		return nil
	})
}

// Wait blocks until no generation, reveal or deploy is outstanding and returns
// the settled snapshot.
func (s *Session) Wait(ctx context.Context) (*domain.Snapshot, error) {
	ch := make(chan *domain.Snapshot, 1)
	err := s.do(ctx, func(context.Context) error {
		s.waiters = append(s.waiters, ch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	select {
	case snap := <-ch:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, domain.ErrSessionClosed
	}
}

// SetDraft updates the requirement input field.
func (s *Session) SetDraft(ctx context.Context, draft string) error {
	return s.do(ctx, func(context.Context) error {
		if s.state.Draft != draft {
			s.state.Draft = draft
			s.touch()
		}
		return nil
	})
}

// SetTheme sets the theme forwarded with subsequent generation requests.
func (s *Session) SetTheme(ctx context.Context, theme *domain.Theme) error {
	return s.do(ctx, func(context.Context) error {
		if theme.IsZero() {
			s.state.Theme = nil
		} else {
			t := *theme
			s.state.Theme = &t
		}
		s.touch()
		return nil
	})
}

// Close stops the session loop. Outstanding remote calls are cancelled and their
// results discarded. Close is idempotent.
func (s *Session) Close() {
	s.stopOnce.Do(s.cancel)
	<-s.done
}

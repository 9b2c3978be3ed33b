package runtime

import (
	"context"
	"strings"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// revealCursor tracks the artifact currently being revealed.
// The revealed text lives here, not in the active slot, so navigation away from the
// artifact never loses reveal progress.
type revealCursor struct {
	index    int
	name     string
	content  []rune
	offset   int
	steps    int
	revealed strings.Builder
}

func (c *revealCursor) done() bool {
	return c.offset >= len(c.content)
}

// next returns the next chunk of at most size runes and advances the cursor.
func (c *revealCursor) next(size int) string {
	end := c.offset + size
	if end > len(c.content) {
		end = len(c.content)
	}
	chunk := string(c.content[c.offset:end])
	c.offset = end
	c.steps++
	c.revealed.WriteString(chunk)
	return chunk
}

// playFrom enters the artifacts of the reveal order starting at index i.
// Artifacts that complete on entry (opaque or empty) chain immediately; the loop
// stops at the first artifact that needs chunked reveal, or completes playback.
func (s *Session) playFrom(ctx context.Context, i int) {
	order := s.state.Order
	for ; i < len(order); i++ {
		if s.enter(ctx, i) {
			return
		}
		s.leave(ctx)
	}
	s.completePlayback(ctx)
}

// enter starts the reveal of order[i]. It reports whether chunked reveal is pending.
func (s *Session) enter(ctx context.Context, i int) bool {
	name := s.state.Order[i]
	content, _ := s.state.Bundle.Content(name)

	if !s.state.InRegistry(name) {
		s.state.Registry = append(s.state.Registry, name)
	}
	s.state.Playback = domain.Playback{Phase: domain.PhaseRevealing, Artifact: name}
	s.state.Owner = domain.OwnerSequencer
	s.state.Focus = name
	s.touch()
	s.setActive(ctx, "")

	c := &revealCursor{index: i, name: name, content: []rune(content)}
	s.reveal = c

	opaque := s.state.Bundle.IsOpaque(name)
	s.emitArtifactEnter(ctx, c, opaque)
	s.logger.Debug("artifact reveal started", "artifact", name, "index", i, "size", len(c.content))

	if opaque {
		// Not text: shown whole, no chunking.
		c.offset = len(c.content)
		c.revealed.WriteString(content)
		s.state.Playback.Revealed = len(c.content)
		s.setActive(ctx, content)
		return false
	}
	return !c.done()
}

// step reveals one chunk of the current artifact and chains to the next artifact
// once the content is exhausted.
func (s *Session) step(ctx context.Context) {
	c := s.reveal
	if c == nil {
		return
	}

	c.next(s.engine.chunkSize)
	s.state.Playback.Revealed = c.offset
	s.touch()
	if s.state.Owner == domain.OwnerSequencer && s.state.Focus == c.name {
		s.setActive(ctx, c.revealed.String())
	}
	s.emitRevealChunk(ctx, c)

	if !c.done() {
		return
	}
	s.leave(ctx)
	s.playFrom(ctx, c.index+1)
}

// leave finishes the current artifact.
func (s *Session) leave(ctx context.Context) {
	c := s.reveal
	if c == nil {
		return
	}
	s.emitArtifactLeave(ctx, c)
	s.reveal = nil
}

func (s *Session) completePlayback(ctx context.Context) {
	s.reveal = nil
	s.stopTimer()
	s.state.Playback = domain.Playback{Phase: domain.PhaseComplete}
	s.state.Deploy = domain.Deploy{Phase: domain.DeployReady}
	s.state.Owner = domain.OwnerUser
	s.touch()
	s.logger.Info("playback complete", "artifacts", len(s.state.Registry), "cycle", s.state.Cycle)
}

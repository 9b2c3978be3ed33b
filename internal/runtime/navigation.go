package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// SelectArtifact points the active content slot at an artifact of the registry.
//
// Selecting a finished artifact shows its full stored content and hands the slot
// to the user; the sequencer keeps revealing underneath. Selecting the artifact
// that is still being revealed hands the slot back to the sequencer, showing the
// revealed prefix and every following chunk. Names that have not begun reveal are
// rejected with domain.ErrNavigationRejected and leave the slot untouched.
func (s *Session) SelectArtifact(ctx context.Context, name string) error {
	return s.do(ctx, func(loopCtx context.Context) error {
		return s.selectArtifact(loopCtx, name)
	})
}

func (s *Session) selectArtifact(ctx context.Context, name string) error {
	if !s.state.InRegistry(name) {
		return fmt.Errorf("%w: %q has not been revealed", domain.ErrNavigationRejected, name)
	}

	s.state.Focus = name
	s.touch()

	if c := s.reveal; c != nil && c.name == name {
		s.state.Owner = domain.OwnerSequencer
		s.setActive(ctx, c.revealed.String())
		return nil
	}

	content, _ := s.state.Bundle.Content(name)
	s.state.Owner = domain.OwnerUser
	s.setActive(ctx, content)
	return nil
}

// EditActive replaces the active content with user-edited text.
// The bundle is never modified, so re-selecting an artifact restores its stored content.
func (s *Session) EditActive(ctx context.Context, content string) error {
	return s.do(ctx, func(loopCtx context.Context) error {
		s.state.Owner = domain.OwnerUser
		s.touch()
		s.setActive(loopCtx, content)
		return nil
	})
}

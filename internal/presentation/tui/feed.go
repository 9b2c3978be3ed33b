package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// Feed carries session updates into a Bubble Tea program.
//
// It is both the preview viewport of the session and a source of state
// snapshots. Each channel keeps only the latest value, so the session loop
// never waits for the terminal to catch up.
type Feed struct {
	content chan string
	states  chan *domain.Snapshot
}

type contentMsg string

type stateMsg struct {
	snap *domain.Snapshot
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		content: make(chan string, 1),
		states:  make(chan *domain.Snapshot, 1),
	}
}

// Render implements ports.Viewport.
func (f *Feed) Render(ctx context.Context, content string) error {
	offer(f.content, content)
	return nil
}

// Hooks returns lifecycle hooks publishing every changed snapshot.
func (f *Feed) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, old, new *domain.Snapshot) {
			offer(f.states, new)
		},
	}
}

func (f *Feed) waitContent() tea.Cmd {
	return func() tea.Msg {
		return contentMsg(<-f.content)
	}
}

func (f *Feed) waitState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg{snap: <-f.states}
	}
}

// offer replaces any unread value of ch with v.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

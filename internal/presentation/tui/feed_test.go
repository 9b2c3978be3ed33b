package tui

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/pitchpilot"
	"github.com/aretw0/pitchpilot/pkg/adapters/memory"
	"github.com/aretw0/pitchpilot/pkg/domain"
)

func TestFeed_KeepsLatestContent(t *testing.T) {
	f := NewFeed()
	ctx := context.Background()

	for _, s := range []string{"a", "ab", "abc"} {
		if err := f.Render(ctx, s); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if got := f.waitContent()(); got != contentMsg("abc") {
		t.Fatalf("expected latest content, got %v", got)
	}
	select {
	case v := <-f.content:
		t.Fatalf("stale value left behind: %q", v)
	default:
	}
}

func TestFeed_FollowsSession(t *testing.T) {
	feed := NewFeed()
	backend := memory.NewBackend(memory.WithBundle(map[string]string{
		"index.html": "<h1>hi</h1>",
		"style.css":  "h1{}",
	}))
	eng, err := pitchpilot.New(backend, backend, pitchpilot.WithLifecycleHooks(feed.Hooks()))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := eng.Open(ctx, "tui", feed)
	defer s.Close()

	if got := feed.waitContent()(); got != contentMsg(domain.WelcomeDocument) {
		t.Fatalf("expected the welcome document first, got %v", got)
	}

	if err := s.RequestGeneration(ctx, "greeting"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := s.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	msg := feed.waitState()().(stateMsg)
	if msg.snap.Playback.Phase != domain.PhaseComplete {
		t.Fatalf("expected complete playback, got %s", msg.snap.Playback.Phase)
	}
	if got := feed.waitContent()(); got != contentMsg("h1{}") {
		t.Fatalf("expected the last artifact in the viewport, got %v", got)
	}
}

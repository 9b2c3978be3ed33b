package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

type fakeSession struct {
	draft        string
	requirements []string
	selected     []string
	deploys      int
	err          error
	snap         *domain.Snapshot
}

func (f *fakeSession) SetDraft(_ context.Context, draft string) error {
	f.draft = draft
	return nil
}

func (f *fakeSession) RequestGeneration(_ context.Context, requirement string) error {
	if f.err != nil {
		return f.err
	}
	f.requirements = append(f.requirements, requirement)
	return nil
}

func (f *fakeSession) SelectArtifact(_ context.Context, name string) error {
	f.selected = append(f.selected, name)
	return f.err
}

func (f *fakeSession) RequestDeploy(context.Context) error {
	f.deploys++
	return f.err
}

func (f *fakeSession) Snapshot(context.Context) (*domain.Snapshot, error) {
	if f.snap == nil {
		return domain.NewSnapshot("tui"), nil
	}
	return f.snap, nil
}

func newTestApp(s Session) *App {
	a := NewApp(context.Background(), s, NewFeed())
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return a
}

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// send feeds msg to the app and, when a command comes back, runs it and feeds
// its message too.
func send(a *App, msg tea.Msg) tea.Msg {
	_, cmd := a.Update(msg)
	if cmd == nil {
		return nil
	}
	out := cmd()
	a.Update(out)
	return out
}

func TestApp_SubmitRequiresText(t *testing.T) {
	s := &fakeSession{}
	a := newTestApp(s)

	if _, cmd := a.Update(keyMsg(tea.KeyEnter)); cmd != nil {
		t.Fatalf("expected no command for an empty requirement")
	}
	if !strings.Contains(a.status, "requirement") {
		t.Fatalf("expected a hint in the status line, got %q", a.status)
	}
	if len(s.requirements) != 0 {
		t.Fatalf("nothing should have been requested")
	}
}

func TestApp_SubmitClearsInputOnceAccepted(t *testing.T) {
	s := &fakeSession{}
	a := newTestApp(s)
	a.input.SetValue("a bakery landing page")

	send(a, keyMsg(tea.KeyEnter))

	if len(s.requirements) != 1 || s.requirements[0] != "a bakery landing page" {
		t.Fatalf("unexpected requests: %v", s.requirements)
	}
	if s.draft != "a bakery landing page" {
		t.Fatalf("draft not recorded: %q", s.draft)
	}
	if a.input.Value() == "" {
		t.Fatalf("input must survive until the response arrives")
	}

	generating := domain.NewSnapshot("tui")
	generating.Draft = "a bakery landing page"
	generating.Playback.Phase = domain.PhaseGenerating
	a.Update(stateMsg{snap: generating})
	if a.input.Value() == "" {
		t.Fatalf("input cleared while still generating")
	}

	revealing := domain.NewSnapshot("tui")
	revealing.Playback = domain.Playback{Phase: domain.PhaseRevealing, Artifact: "index.html"}
	revealing.Registry = []string{"index.html"}
	a.Update(stateMsg{snap: revealing})
	if got := a.input.Value(); got != "" {
		t.Fatalf("expected input cleared after acceptance, got %q", got)
	}
}

func TestApp_FailedGenerationKeepsInput(t *testing.T) {
	s := &fakeSession{}
	a := newTestApp(s)
	a.input.SetValue("portfolio")
	send(a, keyMsg(tea.KeyEnter))

	failed := domain.NewSnapshot("tui")
	failed.Draft = "portfolio"
	failed.LastError = "backend unavailable"
	a.Update(stateMsg{snap: failed})

	if got := a.input.Value(); got != "portfolio" {
		t.Fatalf("expected input kept for retry, got %q", got)
	}
	if !strings.Contains(a.View(), "backend unavailable") {
		t.Fatalf("expected the error in the view")
	}
}

func TestApp_RejectedRequestShowsStatus(t *testing.T) {
	s := &fakeSession{err: domain.ErrRequestInFlight}
	a := newTestApp(s)
	a.input.SetValue("again")

	msg := send(a, keyMsg(tea.KeyEnter))

	res, ok := msg.(resultMsg)
	if !ok || !errors.Is(res.err, domain.ErrRequestInFlight) {
		t.Fatalf("unexpected result %#v", msg)
	}
	if !strings.Contains(a.status, "request in flight") {
		t.Fatalf("status %q does not mention the rejection", a.status)
	}
	if a.submitted {
		t.Fatalf("a rejected request must not wait for acceptance")
	}
}

func TestApp_NavigateArtifacts(t *testing.T) {
	s := &fakeSession{}
	a := newTestApp(s)

	snap := domain.NewSnapshot("tui")
	snap.Registry = []string{"index.html", "style.css", "app.js"}
	snap.Playback.Phase = domain.PhaseComplete
	snap.Focus = "app.js"
	a.Update(stateMsg{snap: snap})

	a.Update(keyMsg(tea.KeyTab))
	if a.focus != focusArtifacts {
		t.Fatalf("tab should move focus to the artifact list")
	}
	a.Update(keyMsg(tea.KeyDown))
	a.Update(keyMsg(tea.KeyDown))
	a.Update(keyMsg(tea.KeyDown))
	a.Update(keyMsg(tea.KeyUp))
	send(a, keyMsg(tea.KeyEnter))

	if len(s.selected) != 1 || s.selected[0] != "style.css" {
		t.Fatalf("unexpected selection: %v", s.selected)
	}
	if len(s.requirements) != 0 {
		t.Fatalf("enter in the artifact list must not submit")
	}

	a.Update(keyMsg(tea.KeyTab))
	if a.focus != focusInput {
		t.Fatalf("tab should return focus to the input")
	}
}

func TestApp_Deploy(t *testing.T) {
	s := &fakeSession{}
	a := newTestApp(s)

	send(a, keyMsg(tea.KeyCtrlD))
	if s.deploys != 1 {
		t.Fatalf("expected one deploy request, got %d", s.deploys)
	}

	snap := domain.NewSnapshot("tui")
	snap.Deploy = domain.Deploy{Phase: domain.DeployDeployed, URL: "https://bakery.example"}
	a.Update(stateMsg{snap: snap})
	if !strings.Contains(a.View(), "https://bakery.example") {
		t.Fatalf("expected the deployed URL in the view")
	}
}

func TestApp_ContentReachesPreview(t *testing.T) {
	a := newTestApp(&fakeSession{})

	a.Update(contentMsg("<h1>Fresh bread</h1>"))
	if !strings.Contains(a.preview.View(), "Fresh bread") {
		t.Fatalf("preview does not show the active content")
	}
}

func TestApp_RendererAppliesToFocusedArtifact(t *testing.T) {
	var rendered []string
	a := NewApp(context.Background(), &fakeSession{}, NewFeed(), WithRenderer(func(s string) (string, error) {
		rendered = append(rendered, s)
		return "RENDERED", nil
	}))
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	snap := domain.NewSnapshot("tui")
	snap.Bundle = domain.NewBundle(map[string]string{"style.css": "body{}"})
	snap.Registry = []string{"style.css"}
	snap.Focus = "style.css"
	snap.Playback.Phase = domain.PhaseComplete
	a.Update(stateMsg{snap: snap})
	a.Update(contentMsg("body{}"))

	if !strings.Contains(a.preview.View(), "RENDERED") {
		t.Fatalf("expected rendered preview")
	}
	last := rendered[len(rendered)-1]
	if !strings.HasPrefix(last, "```css") {
		t.Fatalf("expected fenced css, got %q", last)
	}
}

func TestApp_Quit(t *testing.T) {
	a := newTestApp(&fakeSession{})

	_, cmd := a.Update(keyMsg(tea.KeyEsc))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestApp_InitLoadsSnapshot(t *testing.T) {
	snap := domain.NewSnapshot("tui")
	snap.Registry = []string{"index.html"}
	a := newTestApp(&fakeSession{snap: snap})

	msg := a.fetchSnapshot()()
	a.Update(msg)
	if !strings.Contains(a.View(), "index.html") {
		t.Fatalf("expected the registry in the view")
	}
}

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/runner"
)

// Session is the part of a pitchpilot session the terminal app drives.
type Session interface {
	SetDraft(ctx context.Context, draft string) error
	RequestGeneration(ctx context.Context, requirement string) error
	SelectArtifact(ctx context.Context, name string) error
	RequestDeploy(ctx context.Context) error
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

const (
	sidebarWidth = 26
	inputHeight  = 4
	helpText     = "enter submit · alt+enter newline · tab artifacts · ctrl+d deploy · esc quit"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusArtifacts
)

type resultMsg struct {
	op  string
	err error
}

// App is the Bubble Tea model of an interactive session.
type App struct {
	ctx     context.Context
	session Session
	feed    *Feed
	render  runner.ContentRenderer

	input   textarea.Model
	preview viewport.Model
	spinner spinner.Model

	snap      *domain.Snapshot
	content   string
	cursor    int
	focus     focusArea
	submitted bool
	status    string

	width, height int
}

// AppOption configures an App.
type AppOption func(*App)

// WithRenderer renders the focused artifact through r before previewing it.
func WithRenderer(r runner.ContentRenderer) AppOption {
	return func(a *App) {
		a.render = r
	}
}

// NewApp builds the model for session. feed must be the viewport and hook
// source of that same session.
func NewApp(ctx context.Context, session Session, feed *Feed, opts ...AppOption) *App {
	input := textarea.New()
	input.Placeholder = "Describe the site you want..."
	input.ShowLineNumbers = false
	input.CharLimit = runner.DefaultMaxInputSize
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	s := spinner.New(spinner.WithSpinner(spinner.Dot))

	a := &App{
		ctx:     ctx,
		session: session,
		feed:    feed,
		input:   input,
		preview: viewport.New(0, 0),
		spinner: s,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.spinner.Tick,
		a.feed.waitContent(),
		a.feed.waitState(),
		a.fetchSnapshot(),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.layout()
		return a, nil

	case contentMsg:
		a.content = string(msg)
		a.refreshPreview()
		return a, a.feed.waitContent()

	case stateMsg:
		a.applySnapshot(msg.snap)
		return a, a.feed.waitState()

	case resultMsg:
		a.status = ""
		if msg.err != nil {
			a.status = fmt.Sprintf("%s: %v", msg.op, msg.err)
			return a, nil
		}
		if msg.op == "generate" {
			a.submitted = true
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit
		case "tab":
			a.toggleFocus()
			return a, nil
		case "ctrl+d":
			return a, a.deploy()
		case "enter":
			if a.focus == focusArtifacts {
				return a, a.selectArtifact()
			}
			return a, a.submit()
		}
		if a.focus == focusArtifacts {
			return a, a.navigate(msg)
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("PitchPilot"),
		"  ",
		a.statusLine(),
	)

	sidebar, main := panelStyle, panelStyle
	if a.focus == focusArtifacts {
		sidebar = activePanelStyle
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		sidebar.Width(sidebarWidth).Height(a.preview.Height).Render(a.artifactList()),
		main.Render(a.preview.View()),
	)

	input := panelStyle
	if a.focus == focusInput {
		input = activePanelStyle
	}

	footer := mutedStyle.Render(helpText)
	if a.status != "" {
		footer = errorStyle.Render(a.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input.Render(a.input.View()), footer)
}

func (a *App) layout() {
	w := a.width - sidebarWidth - 6
	if w < 10 {
		w = 10
	}
	h := a.height - inputHeight - 8
	if h < 3 {
		h = 3
	}
	a.preview.Width = w
	a.preview.Height = h
	a.input.SetWidth(a.width - 4)
	a.refreshPreview()
}

func (a *App) applySnapshot(snap *domain.Snapshot) {
	a.snap = snap
	if snap == nil {
		return
	}
	if n := len(snap.Registry); a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
	if a.submitted && snap.Playback.Phase != domain.PhaseGenerating {
		a.submitted = false
		if snap.Draft == "" {
			a.input.Reset()
		}
	}
	a.refreshPreview()
}

func (a *App) refreshPreview() {
	rendered := a.content
	if a.render != nil && a.snap != nil && a.snap.Focus != "" {
		if a.snap.Bundle.Has(a.snap.Focus) && !a.snap.Bundle.IsOpaque(a.snap.Focus) {
			if out, err := a.render(runner.Fence(a.snap.Focus, a.content)); err == nil {
				rendered = out
			}
		}
	}
	a.preview.SetContent(rendered)
	if a.snap != nil && a.snap.Playback.Phase == domain.PhaseRevealing {
		a.preview.GotoBottom()
	}
}

func (a *App) toggleFocus() {
	if a.focus == focusInput {
		a.focus = focusArtifacts
		a.input.Blur()
		return
	}
	a.focus = focusInput
	a.input.Focus()
}

func (a *App) navigate(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
		return nil
	case "down", "j":
		if a.snap != nil && a.cursor < len(a.snap.Registry)-1 {
			a.cursor++
		}
		return nil
	}
	var cmd tea.Cmd
	a.preview, cmd = a.preview.Update(msg)
	return cmd
}

func (a *App) artifactList() string {
	if a.snap == nil || len(a.snap.Registry) == 0 {
		return mutedStyle.Render("no artifacts yet")
	}
	var b strings.Builder
	for i, name := range a.snap.Registry {
		cursor := "  "
		if a.focus == focusArtifacts && i == a.cursor {
			cursor = "> "
		}
		mark := " "
		switch {
		case a.snap.Playback.Phase == domain.PhaseRevealing && a.snap.Playback.Artifact == name:
			mark = "…"
		case name == a.snap.Focus:
			mark = "●"
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, mark, name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) statusLine() string {
	if a.snap == nil {
		return ""
	}
	var parts []string
	if a.snap.Busy() || a.snap.Deploy.Phase == domain.DeployDeploying {
		parts = append(parts, a.spinner.View())
	}
	parts = append(parts, mutedStyle.Render(string(a.snap.Playback.Phase)))
	switch a.snap.Deploy.Phase {
	case domain.DeployDeployed:
		parts = append(parts, linkStyle.Render(a.snap.Deploy.URL))
	case domain.DeployFailed:
		parts = append(parts, errorStyle.Render("deploy failed: "+a.snap.Deploy.Message))
	default:
		parts = append(parts, mutedStyle.Render("deploy "+string(a.snap.Deploy.Phase)))
	}
	if a.snap.LastError != "" {
		parts = append(parts, errorStyle.Render(a.snap.LastError))
	}
	return strings.Join(parts, "  ")
}

func (a *App) submit() tea.Cmd {
	text := a.input.Value()
	if strings.TrimSpace(text) == "" {
		a.status = "type a requirement first"
		return nil
	}
	ctx, s := a.ctx, a.session
	return func() tea.Msg {
		requirement, err := runner.SanitizeInput(text)
		if err != nil {
			return resultMsg{op: "generate", err: err}
		}
		if err := s.SetDraft(ctx, text); err != nil {
			return resultMsg{op: "generate", err: err}
		}
		return resultMsg{op: "generate", err: s.RequestGeneration(ctx, requirement)}
	}
}

func (a *App) selectArtifact() tea.Cmd {
	if a.snap == nil || a.cursor >= len(a.snap.Registry) {
		return nil
	}
	name := a.snap.Registry[a.cursor]
	ctx, s := a.ctx, a.session
	return func() tea.Msg {
		return resultMsg{op: "select", err: s.SelectArtifact(ctx, name)}
	}
}

func (a *App) deploy() tea.Cmd {
	ctx, s := a.ctx, a.session
	return func() tea.Msg {
		return resultMsg{op: "deploy", err: s.RequestDeploy(ctx)}
	}
}

func (a *App) fetchSnapshot() tea.Cmd {
	ctx, s := a.ctx, a.session
	return func() tea.Msg {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return resultMsg{op: "load", err: err}
		}
		return stateMsg{snap: snap}
	}
}

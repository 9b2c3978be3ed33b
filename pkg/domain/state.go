package domain

import (
	"time"
)

// PlaybackPhase defines where the session is in the generate/reveal cycle.
type PlaybackPhase string

const (
	PhaseIdle       PlaybackPhase = "idle"       // No generation has run, or the last one failed
	PhaseGenerating PlaybackPhase = "generating" // Waiting for the remote generate response
	PhaseRevealing  PlaybackPhase = "revealing"  // An artifact is being played into the active slot
	PhaseComplete   PlaybackPhase = "complete"   // Every artifact of the bundle has been revealed
)

// Playback is the PlaybackState of a session.
// Artifact and Revealed are only meaningful while Phase is PhaseRevealing.
type Playback struct {
	Phase    PlaybackPhase `json:"phase"`
	Artifact string        `json:"artifact,omitempty"`
	// Revealed counts the runes of Artifact exposed so far.
	Revealed int `json:"revealed,omitempty"`
}

// Owner identifies who may write the active content slot.
type Owner string

const (
	OwnerSequencer Owner = "sequencer"
	OwnerUser      Owner = "user"
)

// DeployPhase defines the deploy lifecycle.
type DeployPhase string

const (
	DeployNotReady  DeployPhase = "not_ready"
	DeployReady     DeployPhase = "ready"
	DeployDeploying DeployPhase = "deploying"
	DeployDeployed  DeployPhase = "deployed"
	DeployFailed    DeployPhase = "failed"
)

// Deploy is the DeployState of a session.
type Deploy struct {
	Phase DeployPhase `json:"phase"`
	// URL is set once Phase is DeployDeployed.
	URL string `json:"url,omitempty"`
	// Message holds the failure description once Phase is DeployFailed.
	Message string `json:"message,omitempty"`
}

// WelcomeDocument is the active content shown before the first generation.
const WelcomeDocument = `<!DOCTYPE html>
<html>
  <head>
    <title>My app</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <meta charset="utf-8">
    <script src="https://cdn.tailwindcss.com"></script>
  </head>
  <body class="flex justify-center items-center h-screen overflow-hidden bg-white font-sans text-center px-6">
    <div class="w-full">
      <h1 class="text-4xl lg:text-6xl font-bold font-sans">
        <span class="text-2xl lg:text-4xl text-gray-400 block font-medium">I'm ready to work,</span>
        Ask me anything.
      </h1>
    </div>
  </body>
</html>`

// Snapshot represents the current state of one playback session.
type Snapshot struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// Draft is the requirement input field. It is cleared once the backend
	// accepted a generation request, so failed requests keep it for retry.
	Draft string `json:"draft,omitempty"`

	// Theme is contextual payload forwarded with generation requests.
	Theme *Theme `json:"theme,omitempty"`

	// Cycle counts accepted generation requests.
	Cycle int `json:"cycle"`

	Bundle   Bundle   `json:"bundle"`
	Order    []string `json:"order,omitempty"`
	Registry []string `json:"registry"`

	// Active is the single string shown in both the editor and the preview.
	Active string `json:"active"`
	// Focus is the artifact the navigation currently points at.
	Focus string `json:"focus,omitempty"`
	Owner Owner  `json:"owner"`

	Playback Playback `json:"playback"`
	Deploy   Deploy   `json:"deploy"`

	// LastError is the most recent user-visible failure or notice.
	LastError string `json:"last_error,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSnapshot creates a clean idle session.
func NewSnapshot(sessionID string) *Snapshot {
	return &Snapshot{
		SessionID: sessionID,
		Bundle:    NewBundle(nil),
		Registry:  []string{},
		Active:    WelcomeDocument,
		Owner:     OwnerUser,
		Playback:  Playback{Phase: PhaseIdle},
		Deploy:    Deploy{Phase: DeployNotReady},
		UpdatedAt: time.Now(),
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Bundle = s.Bundle.Clone()
	out.Order = append([]string(nil), s.Order...)
	out.Registry = append([]string{}, s.Registry...)
	if s.Theme != nil {
		t := *s.Theme
		t.Colors = copyStrings(s.Theme.Colors)
		t.Fonts = copyStrings(s.Theme.Fonts)
		out.Theme = &t
	}
	return &out
}

// Busy reports whether a generation or reveal is in progress.
func (s *Snapshot) Busy() bool {
	return s.Playback.Phase == PhaseGenerating || s.Playback.Phase == PhaseRevealing
}

// Settled reports whether no remote operation or reveal is outstanding.
func (s *Snapshot) Settled() bool {
	return !s.Busy() && s.Deploy.Phase != DeployDeploying
}

// InRegistry reports whether name has at least begun reveal.
func (s *Snapshot) InRegistry(name string) bool {
	for _, n := range s.Registry {
		if n == name {
			return true
		}
	}
	return false
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

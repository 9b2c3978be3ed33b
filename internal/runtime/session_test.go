package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pitchpilot/internal/runtime"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
)

func staticGenerator(files map[string]string) ports.GeneratorFunc {
	return func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
		return domain.NewBundle(files), nil
	}
}

func staticDeployer(url string, err error) ports.DeployerFunc {
	return func(ctx context.Context) (string, error) {
		return url, err
	}
}

// tracer records hook events and viewport renders in loop order.
type tracer struct {
	mu    sync.Mutex
	lines []string
}

func (tr *tracer) add(format string, args ...any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.lines = append(tr.lines, fmt.Sprintf(format, args...))
}

func (tr *tracer) String() string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return strings.Join(tr.lines, "\n") + "\n"
}

func (tr *tracer) renders() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []string
	for _, l := range tr.lines {
		if strings.HasPrefix(l, "render ") {
			out = append(out, strings.TrimPrefix(l, "render "))
		}
	}
	return out
}

func (tr *tracer) viewport() ports.Viewport {
	return ports.ViewportFunc(func(ctx context.Context, content string) error {
		if content == domain.WelcomeDocument {
			tr.add("render <welcome>")
			return nil
		}
		tr.add("render %q", content)
		return nil
	})
}

func (tr *tracer) hooks() domain.LifecycleHooks {
	artifact := func(e *domain.ArtifactEvent) {
		tr.add("%s cycle=%d artifact=%s index=%d total=%d size=%d", e.Type, e.Cycle, e.Artifact, e.Index, e.Total, e.Size)
	}
	return domain.LifecycleHooks{
		OnGenerationStart: func(ctx context.Context, e *domain.GenerationEvent) {
			tr.add("%s cycle=%d requirement=%q", e.Type, e.Cycle, e.Requirement)
		},
		OnGenerationEnd: func(ctx context.Context, e *domain.GenerationEvent) {
			tr.add("%s cycle=%d outcome=%s artifacts=%d", e.Type, e.Cycle, e.Outcome, e.Artifacts)
		},
		OnArtifactEnter: func(ctx context.Context, e *domain.ArtifactEvent) { artifact(e) },
		OnArtifactLeave: func(ctx context.Context, e *domain.ArtifactEvent) { artifact(e) },
		OnRevealChunk: func(ctx context.Context, e *domain.ChunkEvent) {
			tr.add("%s cycle=%d artifact=%s step=%d revealed=%d/%d", e.Type, e.Cycle, e.Artifact, e.Step, e.Revealed, e.Size)
		},
		OnDeployStart: func(ctx context.Context, e *domain.DeployEvent) {
			tr.add("%s cycle=%d", e.Type, e.Cycle)
		},
		OnDeployEnd: func(ctx context.Context, e *domain.DeployEvent) {
			tr.add("%s cycle=%d outcome=%s url=%s", e.Type, e.Cycle, e.Outcome, e.URL)
		},
	}
}

func openSession(t *testing.T, gen ports.Generator, dep ports.Deployer, opts ...runtime.EngineOption) *runtime.Session {
	t.Helper()
	engine := runtime.NewEngine(gen, dep, opts...)
	s := engine.Open(context.Background(), "test")
	t.Cleanup(s.Close)
	return s
}

func waitSettled(t *testing.T, s *runtime.Session) *domain.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := s.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestSession_ScenarioA_RevealAndDeploy(t *testing.T) {
	tr := &tracer{}
	s := openSession(t,
		staticGenerator(map[string]string{"index.html": "abc", "style.css": "xy"}),
		staticDeployer("https://x", nil),
		runtime.WithChunkSize(2),
		runtime.WithViewports(tr.viewport()),
		runtime.WithLifecycleHooks(tr.hooks()),
	)
	ctx := context.Background()

	require.NoError(t, s.RequestGeneration(ctx, "a landing page"))
	snap := waitSettled(t, s)

	assert.Equal(t, []string{"index.html", "style.css"}, snap.Order)
	assert.Equal(t, []string{"index.html", "style.css"}, snap.Registry)
	assert.Equal(t, domain.PhaseComplete, snap.Playback.Phase)
	assert.Equal(t, domain.DeployReady, snap.Deploy.Phase)
	assert.Equal(t, domain.OwnerUser, snap.Owner)
	assert.Equal(t, "xy", snap.Active)
	assert.Equal(t, []string{"<welcome>", `""`, `"ab"`, `"abc"`, `""`, `"xy"`}, tr.renders())

	require.NoError(t, s.RequestDeploy(ctx))
	snap = waitSettled(t, s)
	assert.Equal(t, domain.DeployDeployed, snap.Deploy.Phase)
	assert.Equal(t, "https://x", snap.Deploy.URL)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "scenario_a", []byte(tr.String()))
}

func TestSession_ScenarioB_EmptyBundle(t *testing.T) {
	s := openSession(t, staticGenerator(map[string]string{}), staticDeployer("", nil))
	ctx := context.Background()

	require.NoError(t, s.SetDraft(ctx, "anything"))
	require.NoError(t, s.RequestGeneration(ctx, "anything"))
	snap := waitSettled(t, s)

	assert.Equal(t, domain.PhaseIdle, snap.Playback.Phase)
	assert.Empty(t, snap.Registry)
	assert.Equal(t, domain.DeployNotReady, snap.Deploy.Phase)
	assert.Equal(t, domain.ErrEmptyResult.Error(), snap.LastError)
	assert.Empty(t, snap.Draft, "a successful response clears the draft even without artifacts")

	err := s.RequestDeploy(ctx)
	assert.ErrorIs(t, err, domain.ErrDeployNotReady)
}

func TestSession_ScenarioC_RedeployBoundary(t *testing.T) {
	files := map[string]string{"index.html": "<p>hi</p>"}

	t.Run("Rejected By Default", func(t *testing.T) {
		var calls atomic.Int32
		dep := ports.DeployerFunc(func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "https://x", nil
		})
		s := openSession(t, staticGenerator(files), dep)
		ctx := context.Background()

		require.NoError(t, s.RequestGeneration(ctx, "page"))
		waitSettled(t, s)
		require.NoError(t, s.RequestDeploy(ctx))
		snap := waitSettled(t, s)
		require.Equal(t, domain.DeployDeployed, snap.Deploy.Phase)

		assert.ErrorIs(t, s.RequestDeploy(ctx), domain.ErrDeployNotReady)
		assert.Equal(t, int32(1), calls.Load())

		snap = waitSettled(t, s)
		assert.Equal(t, "https://x", snap.Deploy.URL)
	})

	t.Run("Allowed With Redeploy", func(t *testing.T) {
		urls := []string{"https://one", "https://two"}
		var calls atomic.Int32
		dep := ports.DeployerFunc(func(ctx context.Context) (string, error) {
			n := calls.Add(1)
			return urls[n-1], nil
		})
		s := openSession(t, staticGenerator(files), dep, runtime.WithRedeploy(true))
		ctx := context.Background()

		require.NoError(t, s.RequestGeneration(ctx, "page"))
		waitSettled(t, s)
		require.NoError(t, s.RequestDeploy(ctx))
		waitSettled(t, s)
		require.NoError(t, s.RequestDeploy(ctx))
		snap := waitSettled(t, s)

		assert.Equal(t, domain.DeployDeployed, snap.Deploy.Phase)
		assert.Equal(t, "https://two", snap.Deploy.URL)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("New Generation Resets", func(t *testing.T) {
		s := openSession(t, staticGenerator(files), staticDeployer("https://x", nil))
		ctx := context.Background()

		require.NoError(t, s.RequestGeneration(ctx, "page"))
		waitSettled(t, s)
		require.NoError(t, s.RequestDeploy(ctx))
		waitSettled(t, s)

		require.NoError(t, s.RequestGeneration(ctx, "page again"))
		snap := waitSettled(t, s)
		assert.Equal(t, domain.DeployReady, snap.Deploy.Phase)
		assert.Empty(t, snap.Deploy.URL)
		assert.Equal(t, 2, snap.Cycle)
	})
}

func TestSession_ScenarioD_DeployWithoutURL(t *testing.T) {
	s := openSession(t, staticGenerator(map[string]string{"index.html": "x"}), staticDeployer("", nil))
	ctx := context.Background()

	require.NoError(t, s.RequestGeneration(ctx, "page"))
	waitSettled(t, s)
	require.NoError(t, s.RequestDeploy(ctx))
	snap := waitSettled(t, s)

	assert.Equal(t, domain.DeployReady, snap.Deploy.Phase)
	assert.Equal(t, domain.ErrMissingDeployURL.Error(), snap.LastError)

	// Still ready, so the user may simply try again.
	require.NoError(t, s.RequestDeploy(ctx))
	waitSettled(t, s)
}

func TestSession_ScenarioE_NavigationBeforeRegistry(t *testing.T) {
	s := openSession(t, staticGenerator(map[string]string{"index.html": "abc"}), staticDeployer("", nil))
	ctx := context.Background()

	err := s.SelectArtifact(ctx, "style.css")
	assert.ErrorIs(t, err, domain.ErrNavigationRejected)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WelcomeDocument, snap.Active)
	assert.Empty(t, snap.Focus)

	require.NoError(t, s.RequestGeneration(ctx, "page"))
	waitSettled(t, s)
	assert.ErrorIs(t, s.SelectArtifact(ctx, "style.css"), domain.ErrNavigationRejected)

	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.Active)
}

func TestSession_RevealSteps(t *testing.T) {
	tests := []struct {
		name    string
		content string
		chunk   int
		steps   int
	}{
		{"Exact Multiple", "abcdef", 2, 3},
		{"Remainder", "abcdefg", 3, 3},
		{"Single Chunk", "abc", 100, 1},
		{"One Rune Chunks", "abcd", 1, 4},
		{"Multibyte", "héllo wörld ✓", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chunks []*domain.ChunkEvent
			var mu sync.Mutex
			hooks := domain.LifecycleHooks{
				OnRevealChunk: func(ctx context.Context, e *domain.ChunkEvent) {
					mu.Lock()
					defer mu.Unlock()
					chunks = append(chunks, e)
				},
			}
			s := openSession(t,
				staticGenerator(map[string]string{"index.html": tt.content}),
				staticDeployer("", nil),
				runtime.WithChunkSize(tt.chunk),
				runtime.WithLifecycleHooks(hooks),
			)

			require.NoError(t, s.RequestGeneration(context.Background(), "page"))
			snap := waitSettled(t, s)

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, chunks, tt.steps)
			assert.Equal(t, len([]rune(tt.content)), chunks[len(chunks)-1].Revealed)
			assert.Equal(t, tt.content, snap.Active)
		})
	}
}

func TestSession_OpaqueAndEmptyArtifacts(t *testing.T) {
	gen := ports.GeneratorFunc(func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
		b := domain.NewBundle(map[string]string{"index.html": "abcd", "empty.txt": ""})
		return b.WithOpaque("data.json", `{"k":1}`), nil
	})

	var entered []string
	var chunked []string
	var mu sync.Mutex
	hooks := domain.LifecycleHooks{
		OnArtifactEnter: func(ctx context.Context, e *domain.ArtifactEvent) {
			mu.Lock()
			defer mu.Unlock()
			entered = append(entered, e.Artifact)
		},
		OnRevealChunk: func(ctx context.Context, e *domain.ChunkEvent) {
			mu.Lock()
			defer mu.Unlock()
			chunked = append(chunked, e.Artifact)
		},
	}

	s := openSession(t, gen, staticDeployer("", nil), runtime.WithChunkSize(2), runtime.WithLifecycleHooks(hooks))
	ctx := context.Background()

	require.NoError(t, s.RequestGeneration(ctx, "page"))
	snap := waitSettled(t, s)

	assert.Equal(t, []string{"index.html", "data.json", "empty.txt"}, snap.Registry)
	assert.Equal(t, domain.PhaseComplete, snap.Playback.Phase)
	mu.Lock()
	assert.Equal(t, []string{"index.html", "data.json", "empty.txt"}, entered)
	assert.Equal(t, []string{"index.html", "index.html"}, chunked)
	mu.Unlock()

	require.NoError(t, s.SelectArtifact(ctx, "data.json"))
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}`, snap.Active)
}

func TestSession_GenerationGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("Blank Input", func(t *testing.T) {
		var calls atomic.Int32
		gen := ports.GeneratorFunc(func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
			calls.Add(1)
			return domain.NewBundle(nil), nil
		})
		s := openSession(t, gen, staticDeployer("", nil))

		for _, in := range []string{"", "   ", "\n\t"} {
			assert.ErrorIs(t, s.RequestGeneration(ctx, in), domain.ErrInvalidInput)
		}
		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseIdle, snap.Playback.Phase)
		assert.Equal(t, 0, snap.Cycle)
		assert.Zero(t, calls.Load())
	})

	t.Run("In Flight", func(t *testing.T) {
		release := make(chan struct{})
		var calls atomic.Int32
		gen := ports.GeneratorFunc(func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
			calls.Add(1)
			<-release
			return domain.NewBundle(map[string]string{"index.html": "ok"}), nil
		})
		s := openSession(t, gen, staticDeployer("", nil))

		require.NoError(t, s.RequestGeneration(ctx, "first"))
		assert.ErrorIs(t, s.RequestGeneration(ctx, "second"), domain.ErrRequestInFlight)
		assert.ErrorIs(t, s.RequestDeploy(ctx), domain.ErrDeployNotReady)

		close(release)
		snap := waitSettled(t, s)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 1, snap.Cycle)
		assert.Equal(t, "ok", snap.Active)
	})

	t.Run("Refused While Deploying", func(t *testing.T) {
		release := make(chan struct{})
		dep := ports.DeployerFunc(func(ctx context.Context) (string, error) {
			<-release
			return "https://x", nil
		})
		s := openSession(t, staticGenerator(map[string]string{"index.html": "ok"}), dep)

		require.NoError(t, s.RequestGeneration(ctx, "page"))
		waitSettled(t, s)
		require.NoError(t, s.RequestDeploy(ctx))
		assert.ErrorIs(t, s.RequestGeneration(ctx, "again"), domain.ErrRequestInFlight)

		close(release)
		snap := waitSettled(t, s)
		assert.Equal(t, domain.DeployDeployed, snap.Deploy.Phase)
	})
}

func TestSession_GenerationFailure(t *testing.T) {
	gen := ports.GeneratorFunc(func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
		return domain.Bundle{}, &domain.TransportError{Op: "generate", Status: 500, Body: "boom"}
	})
	s := openSession(t, gen, staticDeployer("", nil))
	ctx := context.Background()

	require.NoError(t, s.SetDraft(ctx, "make a page"))
	require.NoError(t, s.RequestGeneration(ctx, "make a page"))
	snap := waitSettled(t, s)

	assert.Equal(t, domain.PhaseIdle, snap.Playback.Phase)
	assert.Equal(t, "generate: server error 500: boom", snap.LastError)
	assert.Equal(t, "make a page", snap.Draft)
	assert.Empty(t, snap.Registry)

	// The session stays usable.
	require.NoError(t, s.RequestGeneration(ctx, "make a page"))
	waitSettled(t, s)
}

func TestSession_DeployFailureAndRetry(t *testing.T) {
	var calls atomic.Int32
	dep := ports.DeployerFunc(func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", &domain.TransportError{Op: "deploy", Status: 502, Body: "bad gateway"}
		}
		return "https://x", nil
	})
	s := openSession(t, staticGenerator(map[string]string{"index.html": "ok"}), dep)
	ctx := context.Background()

	require.NoError(t, s.RequestGeneration(ctx, "page"))
	waitSettled(t, s)

	require.NoError(t, s.RequestDeploy(ctx))
	snap := waitSettled(t, s)
	assert.Equal(t, domain.DeployFailed, snap.Deploy.Phase)
	assert.Equal(t, "deploy: server error 502: bad gateway", snap.Deploy.Message)

	require.NoError(t, s.RequestDeploy(ctx))
	snap = waitSettled(t, s)
	assert.Equal(t, domain.DeployDeployed, snap.Deploy.Phase)
	assert.Empty(t, snap.LastError)
}

func TestSession_ThemeForwarding(t *testing.T) {
	got := make(chan domain.GenerateRequest, 2)
	gen := ports.GeneratorFunc(func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
		got <- req
		return domain.NewBundle(map[string]string{"index.html": "ok"}), nil
	})
	s := openSession(t, gen, staticDeployer("", nil))
	ctx := context.Background()

	require.NoError(t, s.RequestGeneration(ctx, "plain"))
	waitSettled(t, s)
	assert.Nil(t, (<-got).Theme)

	theme := &domain.Theme{Name: "dark", Colors: map[string]string{"bg": "#000"}}
	require.NoError(t, s.SetTheme(ctx, theme))
	require.NoError(t, s.RequestGeneration(ctx, "themed"))
	waitSettled(t, s)

	req := <-got
	require.NotNil(t, req.Theme)
	assert.Equal(t, "dark", req.Theme.Name)
	assert.Equal(t, "#000", req.Theme.Colors["bg"])
	assert.Equal(t, "themed", req.Requirement)
}

func TestSession_EditActive(t *testing.T) {
	s := openSession(t, staticGenerator(map[string]string{"index.html": "abc"}), staticDeployer("", nil))
	ctx := context.Background()

	require.NoError(t, s.RequestGeneration(ctx, "page"))
	waitSettled(t, s)

	require.NoError(t, s.EditActive(ctx, "edited"))
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "edited", snap.Active)
	content, _ := snap.Bundle.Content("index.html")
	assert.Equal(t, "abc", content, "edits never reach the bundle")

	require.NoError(t, s.SelectArtifact(ctx, "index.html"))
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.Active)
}

func TestSession_ViewportErrorDoesNotStopPlayback(t *testing.T) {
	broken := ports.ViewportFunc(func(ctx context.Context, content string) error {
		return errors.New("preview gone")
	})
	s := openSession(t, staticGenerator(map[string]string{"index.html": "abc"}), staticDeployer("", nil),
		runtime.WithViewports(broken), runtime.WithChunkSize(1))

	require.NoError(t, s.RequestGeneration(context.Background(), "page"))
	snap := waitSettled(t, s)
	assert.Equal(t, domain.PhaseComplete, snap.Playback.Phase)
	assert.Equal(t, "abc", snap.Active)
}

func TestSession_Close(t *testing.T) {
	started := make(chan struct{})
	gen := ports.GeneratorFunc(func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
		close(started)
		<-ctx.Done()
		return domain.Bundle{}, ctx.Err()
	})
	engine := runtime.NewEngine(gen, staticDeployer("", nil))
	s := engine.Open(context.Background(), "closing")
	ctx := context.Background()

	require.NoError(t, s.RequestGeneration(ctx, "page"))
	<-started
	s.Close()
	s.Close()

	_, err := s.Snapshot(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.ErrorIs(t, s.RequestGeneration(ctx, "again"), domain.ErrSessionClosed)

	select {
	case <-s.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

func TestSession_StateChangeHook(t *testing.T) {
	var phases []domain.PlaybackPhase
	var mu sync.Mutex
	hooks := domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, old, new *domain.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			if old.Playback.Phase != new.Playback.Phase {
				phases = append(phases, new.Playback.Phase)
			}
		},
	}
	s := openSession(t, staticGenerator(map[string]string{"index.html": "abc"}), staticDeployer("", nil),
		runtime.WithLifecycleHooks(hooks))

	require.NoError(t, s.RequestGeneration(context.Background(), "page"))
	waitSettled(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.PlaybackPhase{domain.PhaseGenerating, domain.PhaseRevealing, domain.PhaseComplete}, phases)
}

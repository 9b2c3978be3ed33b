package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pitchpilot"
	"github.com/aretw0/pitchpilot/pkg/adapters/memory"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/session"
)

func newTestServer(t *testing.T, opts ...memory.BackendOption) *Server {
	t.Helper()
	m := session.NewManager(memory.NewStore())
	backend := memory.NewBackend(opts...)
	eng, err := pitchpilot.New(backend, backend, pitchpilot.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)
	m.Bind(eng)
	t.Cleanup(func() { _ = m.CloseAll(context.Background()) })
	return NewServer(m, nil)
}

func TestMCP_ToolFlow(t *testing.T) {
	s := newTestServer(t,
		memory.WithBundle(map[string]string{"index.html": "<p>hi</p>", "app.js": "go()"}),
		memory.WithDeployURL("https://site.example.com"),
	)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	snap, err := s.handleOpen(ctx, req, OpenArgs{Theme: "sunset"})
	require.NoError(t, err)
	require.NotNil(t, snap.Theme)
	assert.Equal(t, "sunset", snap.Theme.Name)
	id := snap.SessionID

	snap, err = s.handleGenerate(ctx, req, GenerateArgs{SessionID: id, Requirement: "a greeting page"})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Cycle)

	snap, err = s.handleWait(ctx, req, WaitArgs{SessionID: id, TimeoutSeconds: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseComplete, snap.Playback.Phase)
	assert.Equal(t, []string{"index.html", "app.js"}, snap.Registry)

	snap, err = s.handleSelect(ctx, req, SelectArgs{SessionID: id, Artifact: "index.html"})
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", snap.Active)

	snap, err = s.handleEdit(ctx, req, EditArgs{SessionID: id, Content: "<p>hello</p>"})
	require.NoError(t, err)
	assert.Equal(t, domain.OwnerUser, snap.Owner)

	contents, err := s.readActive(ctx, mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "pitchpilot://sessions/" + id + "/active"},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "<p>hello</p>", text.Text)
	assert.Equal(t, "text/html", text.MIMEType)

	_, err = s.handleDeploy(ctx, req, SessionArgs{SessionID: id})
	require.NoError(t, err)
	snap, err = s.handleWait(ctx, req, WaitArgs{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, "https://site.example.com", snap.Deploy.URL)

	snap, err = s.handleGetState(ctx, req, SessionArgs{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.DeployDeployed, snap.Deploy.Phase)
}

func TestMCP_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	_, err := s.handleGetState(ctx, req, SessionArgs{SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	snap, err := s.handleOpen(ctx, req, OpenArgs{})
	require.NoError(t, err)
	assert.Nil(t, snap.Theme)

	_, err = s.handleGenerate(ctx, req, GenerateArgs{SessionID: snap.SessionID, Requirement: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.handleGenerate(ctx, req, GenerateArgs{SessionID: snap.SessionID, Requirement: "bad \xff"})
	assert.Error(t, err)

	_, err = s.handleSelect(ctx, req, SelectArgs{SessionID: snap.SessionID, Artifact: "index.html"})
	assert.ErrorIs(t, err, domain.ErrNavigationRejected)

	_, err = s.handleDeploy(ctx, req, SessionArgs{SessionID: snap.SessionID})
	assert.ErrorIs(t, err, domain.ErrDeployNotReady)
}

func TestSessionFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		id   string
		isOK bool
	}{
		{"pitchpilot://sessions/abc/active", "abc", true},
		{"pitchpilot://sessions//active", "", false},
		{"pitchpilot://sessions/a/b/active", "", false},
		{"pitchpilot://sessions/abc", "", false},
		{"other://sessions/abc/active", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			id, ok := sessionFromURI(tt.uri)
			assert.Equal(t, tt.isOK, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestMCP_ToolsRegistered(t *testing.T) {
	s := newTestServer(t)
	resp := s.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"open_session", "generate", "select_artifact", "edit_active", "deploy", "get_state", "wait", "close_session"} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}
}

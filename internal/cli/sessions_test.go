package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pitchpilot/internal/adapters/file"
	"github.com/aretw0/pitchpilot/internal/config"
	"github.com/aretw0/pitchpilot/pkg/domain"
)

func fileConfig(t *testing.T, ids ...string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Driver = config.DriverFile
	cfg.Store.Path = t.TempDir()

	store := file.New(cfg.Store.Path)
	for _, id := range ids {
		require.NoError(t, store.Save(context.Background(), id, domain.NewSnapshot(id)))
	}
	return cfg
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, ListSessions(ctx, fileConfig(t), &out))
	assert.Equal(t, "No stored sessions found.\n", out.String())

	out.Reset()
	require.NoError(t, ListSessions(ctx, fileConfig(t, "b", "a"), &out))
	assert.Equal(t, "a\nb\n", out.String())
}

func TestShowSession(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t, "abc")

	var out bytes.Buffer
	require.NoError(t, ShowSession(ctx, cfg, "abc", &out))

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "abc", snap.SessionID)
	assert.Equal(t, domain.PhaseIdle, snap.Playback.Phase)

	assert.Error(t, ShowSession(ctx, cfg, "missing", &out))
}

func TestRemoveSessions(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t, "a", "b", "c")

	var out bytes.Buffer
	require.NoError(t, RemoveSessions(ctx, cfg, []string{"a", "c"}, &out))
	assert.Contains(t, out.String(), `Removed session "a"`)
	assert.Contains(t, out.String(), `Removed session "c"`)

	out.Reset()
	require.NoError(t, ListSessions(ctx, cfg, &out))
	assert.Equal(t, "b\n", out.String())

	assert.Error(t, RemoveSessions(ctx, cfg, []string{"../escape"}, &out))
}

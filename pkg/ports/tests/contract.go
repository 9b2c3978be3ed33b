package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StateStoreContractTest runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func StateStoreContractTest(t *testing.T, store ports.StateStore) {
	t.Helper()

	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.NewSnapshot(sessionID)
		snap.Cycle = 2
		snap.Bundle = domain.NewBundle(map[string]string{"index.html": "<h1>hi</h1>", "style.css": "h1{}"}).
			WithOpaque("data.json", "{\"a\":1}")
		snap.Order = domain.RevealOrder(snap.Bundle, "")
		snap.Registry = []string{"index.html"}
		snap.Active = "<h1>"
		snap.Playback = domain.Playback{Phase: domain.PhaseRevealing, Artifact: "index.html", Revealed: 4}
		snap.Theme = &domain.Theme{Name: "Ocean", Colors: map[string]string{"accent": "#0b74ff"}}

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.SessionID, loaded.SessionID)
		assert.Equal(t, snap.Cycle, loaded.Cycle)
		assert.Equal(t, snap.Order, loaded.Order)
		assert.Equal(t, snap.Registry, loaded.Registry)
		assert.Equal(t, snap.Active, loaded.Active)
		assert.Equal(t, snap.Playback, loaded.Playback)
		assert.Equal(t, "<h1>hi</h1>", loaded.Bundle.Files["index.html"])
		assert.True(t, loaded.Bundle.IsOpaque("data.json"))
		require.NotNil(t, loaded.Theme)
		assert.Equal(t, "#0b74ff", loaded.Theme.Colors["accent"])
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Registry = append(loaded.Registry, "mutated")

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, again.Registry, "mutated")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSnapshot(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete of a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSnapshot(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSnapshot(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

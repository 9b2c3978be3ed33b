package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/pitchpilot/internal/config"
	"github.com/aretw0/pitchpilot/pkg/ports"
)

// withStore runs fn against the configured snapshot store.
func withStore(cfg *config.Config, fn func(ports.StateStore) error) error {
	store, _, closeStore, err := OpenStore(cfg.Store)
	if err != nil {
		return err
	}
	return errors.Join(fn(store), closeStore())
}

// ListSessions prints the IDs of stored sessions.
func ListSessions(ctx context.Context, cfg *config.Config, out io.Writer) error {
	return withStore(cfg, func(store ports.StateStore) error {
		ids, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored sessions found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	})
}

// ShowSession prints the stored snapshot of a session as indented JSON.
func ShowSession(ctx context.Context, cfg *config.Config, id string, out io.Writer) error {
	return withStore(cfg, func(store ports.StateStore) error {
		snap, err := store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("error loading session %q: %w", id, err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	})
}

// RemoveSessions deletes stored snapshots, reporting each one.
func RemoveSessions(ctx context.Context, cfg *config.Config, ids []string, out io.Writer) error {
	return withStore(cfg, func(store ports.StateStore) error {
		var errs []error
		for _, id := range ids {
			if err := store.Delete(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("error removing %q: %w", id, err))
				continue
			}
			fmt.Fprintf(out, "Removed session %q\n", id)
		}
		return errors.Join(errs...)
	})
}

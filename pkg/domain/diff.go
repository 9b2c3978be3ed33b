package domain

import (
	"strings"
)

// StateDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Cycle    *int      `json:"cycle,omitempty"`
	Playback *Playback `json:"playback,omitempty"`
	Deploy   *Deploy   `json:"deploy,omitempty"`
	Owner    *Owner    `json:"owner,omitempty"`
	Focus    *string   `json:"focus,omitempty"`
	Draft    *string   `json:"draft,omitempty"`

	// Order is sent whole whenever a new bundle arrives.
	Order []string `json:"order,omitempty"`

	// Active carries the content change, as an append when possible.
	Active *ContentDelta `json:"active,omitempty"`

	// Registry carries newly registered artifacts.
	Registry *RegistryDelta `json:"registry,omitempty"`

	LastError *string `json:"last_error,omitempty"`
}

// ContentDelta describes a change of the active content slot.
// Exactly one of Append or Replace is meaningful: Replace wins when set.
type ContentDelta struct {
	Append  string  `json:"append,omitempty"`
	Replace *string `json:"replace,omitempty"`
}

// Apply returns the content after applying the delta to prev.
func (d *ContentDelta) Apply(prev string) string {
	if d == nil {
		return prev
	}
	if d.Replace != nil {
		return *d.Replace
	}
	return prev + d.Append
}

// RegistryDelta represents changes to the artifact registry.
// The registry is append-only within a cycle, so Reset is only set when a new
// cycle cleared it.
type RegistryDelta struct {
	Reset    bool     `json:"reset,omitempty"`
	Appended []string `json:"appended"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *Snapshot) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.Cycle != newState.Cycle {
		diff.Cycle = &newState.Cycle
	}
	if oldState == nil || oldState.Playback != newState.Playback {
		p := newState.Playback
		diff.Playback = &p
	}
	if oldState == nil || oldState.Deploy != newState.Deploy {
		d := newState.Deploy
		diff.Deploy = &d
	}
	if oldState == nil || oldState.Owner != newState.Owner {
		o := newState.Owner
		diff.Owner = &o
	}
	if oldState == nil || oldState.Focus != newState.Focus {
		f := newState.Focus
		diff.Focus = &f
	}
	if oldState == nil || oldState.Draft != newState.Draft {
		d := newState.Draft
		diff.Draft = &d
	}
	if oldState == nil || oldState.LastError != newState.LastError {
		e := newState.LastError
		diff.LastError = &e
	}
	if oldState == nil || !equalStrings(oldState.Order, newState.Order) {
		diff.Order = append([]string{}, newState.Order...)
	}

	diff.Active = diffContent(oldState, newState)
	diff.Registry = diffRegistry(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffContent(old *Snapshot, new *Snapshot) *ContentDelta {
	if old == nil {
		content := new.Active
		return &ContentDelta{Replace: &content}
	}
	if old.Active == new.Active {
		return nil
	}
	// Reveal steps only ever grow the slot, so most updates are appends.
	if strings.HasPrefix(new.Active, old.Active) {
		return &ContentDelta{Append: new.Active[len(old.Active):]}
	}
	content := new.Active
	return &ContentDelta{Replace: &content}
}

func diffRegistry(old *Snapshot, new *Snapshot) *RegistryDelta {
	if old == nil {
		if len(new.Registry) == 0 {
			return nil
		}
		return &RegistryDelta{Appended: append([]string{}, new.Registry...)}
	}

	oldLen := len(old.Registry)
	newLen := len(new.Registry)

	if newLen >= oldLen && equalStrings(old.Registry, new.Registry[:oldLen]) {
		if newLen == oldLen {
			return nil
		}
		return &RegistryDelta{Appended: append([]string{}, new.Registry[oldLen:]...)}
	}

	return &RegistryDelta{Reset: true, Appended: append([]string{}, new.Registry...)}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Cycle == nil &&
		d.Playback == nil &&
		d.Deploy == nil &&
		d.Owner == nil &&
		d.Focus == nil &&
		d.Draft == nil &&
		d.LastError == nil &&
		d.Order == nil &&
		d.Active == nil &&
		d.Registry == nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

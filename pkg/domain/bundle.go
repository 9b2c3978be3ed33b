package domain

import (
	"sort"
)

// DefaultEntryPoint is the artifact revealed first when present in a bundle.
const DefaultEntryPoint = "index.html"

// Bundle is the complete named-artifact result of one generation request.
// It is immutable once constructed; constructors copy their input.
type Bundle struct {
	// Files maps artifact name to its full text content.
	Files map[string]string `json:"files"`

	// Opaque marks artifacts whose backend value was not text.
	// Their Files entry holds a best-effort string form and they are shown whole.
	Opaque map[string]bool `json:"opaque,omitempty"`
}

// NewBundle creates a bundle from a name to content mapping.
func NewBundle(files map[string]string) Bundle {
	b := Bundle{Files: make(map[string]string, len(files))}
	for name, content := range files {
		b.Files[name] = content
	}
	return b
}

// WithOpaque returns a copy of the bundle that also carries an opaque artifact.
func (b Bundle) WithOpaque(name, display string) Bundle {
	out := b.Clone()
	out.Files[name] = display
	if out.Opaque == nil {
		out.Opaque = make(map[string]bool)
	}
	out.Opaque[name] = true
	return out
}

// Clone returns a deep copy of the bundle.
func (b Bundle) Clone() Bundle {
	out := NewBundle(b.Files)
	if len(b.Opaque) > 0 {
		out.Opaque = make(map[string]bool, len(b.Opaque))
		for k, v := range b.Opaque {
			out.Opaque[k] = v
		}
	}
	return out
}

// Len returns the number of artifacts.
func (b Bundle) Len() int {
	return len(b.Files)
}

// Has reports whether name is an artifact of the bundle.
func (b Bundle) Has(name string) bool {
	_, ok := b.Files[name]
	return ok
}

// Content returns the stored content of an artifact.
func (b Bundle) Content(name string) (string, bool) {
	c, ok := b.Files[name]
	return c, ok
}

// IsOpaque reports whether the artifact was delivered as a non-text value.
func (b Bundle) IsOpaque(name string) bool {
	return b.Opaque[name]
}

// RevealOrder computes the deterministic sequence in which artifacts are revealed.
// The entry point comes first when present; every other name follows in ascending
// lexicographic order. An empty entryPoint falls back to DefaultEntryPoint.
func RevealOrder(b Bundle, entryPoint string) []string {
	if entryPoint == "" {
		entryPoint = DefaultEntryPoint
	}

	names := make([]string, 0, len(b.Files))
	hasEntry := false
	for name := range b.Files {
		if name == entryPoint {
			hasEntry = true
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if !hasEntry {
		return names
	}
	return append([]string{entryPoint}, names...)
}

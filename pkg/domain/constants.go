package domain

// Reveal defaults.
const (
	// DefaultChunkSize is the number of runes appended per reveal step.
	DefaultChunkSize = 100
)

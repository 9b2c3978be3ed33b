package http

import "github.com/aretw0/pitchpilot/pkg/domain"

// Error is the body of every rejected request.
type Error struct {
	Error string `json:"error"`
}

// Info is returned by GET /info.
type Info struct {
	App        string `json:"app"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}

// SessionList is returned by GET /sessions.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// CreateSessionRequest is the optional body of POST /sessions.
type CreateSessionRequest struct {
	Theme *domain.Theme `json:"theme,omitempty"`
}

// GenerateRequest is the body of POST /sessions/{id}/generate.
type GenerateRequest struct {
	Requirement string `json:"requirement"`
}

// SelectRequest is the body of POST /sessions/{id}/select.
type SelectRequest struct {
	Artifact string `json:"artifact"`
}

// ActiveRequest is the body of PUT /sessions/{id}/active.
type ActiveRequest struct {
	Content string `json:"content"`
}

// SubscribeEventsParams holds the query parameters of GET /sessions/{id}/events.
type SubscribeEventsParams struct {
	Watch *[]string
}

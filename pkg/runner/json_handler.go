package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// Event is one line emitted by the JSONHandler.
type Event struct {
	Type     string           `json:"type"` // "status", "artifact" or "result"
	Message  string           `json:"message,omitempty"`
	Name     string           `json:"name,omitempty"`
	Content  string           `json:"content,omitempty"`
	Opaque   bool             `json:"opaque,omitempty"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines output.
type JSONHandler struct {
	mu      sync.Mutex
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON output.
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) emit(ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(ev)
}

func (h *JSONHandler) Status(ctx context.Context, msg string) error {
	return h.emit(Event{Type: "status", Message: msg})
}

func (h *JSONHandler) Artifact(ctx context.Context, name, content string, opaque bool) error {
	return h.emit(Event{Type: "artifact", Name: name, Content: content, Opaque: opaque})
}

func (h *JSONHandler) Result(ctx context.Context, snap *domain.Snapshot) error {
	return h.emit(Event{Type: "result", Snapshot: snap})
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// StreamBuffer is the number of diffs a subscriber may lag behind.
const StreamBuffer = 64

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream registry.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for one session. The returned func unsubscribes
// and closes the channel. The channel is also closed when the listener falls
// too far behind; the diffs it would have missed are gone, so the reader must
// start over from a fresh snapshot.
func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, StreamBuffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			sm.drop(sessionID, ch)
		})
	}
}

// drop removes and closes ch if it is still registered. Callers hold mu.
func (sm *StreamManager) drop(sessionID string, ch chan<- string) {
	subs, ok := sm.subscribers[sessionID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(sm.subscribers, sessionID)
	}
}

// Subscribers returns the number of listeners of a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast sends msg to every listener of the session without blocking.
// A listener whose buffer is full is dropped rather than skipped, since diffs
// only apply in sequence.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping subscriber", "session_id", sessionID)
			sm.drop(sessionID, ch)
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every state diff as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, old, new *domain.Snapshot) {
			if sm.Subscribers(new.SessionID) == 0 {
				return
			}
			diff := domain.Diff(old, new)
			if diff == nil {
				return
			}
			data, err := json.Marshal(diff)
			if err != nil {
				sm.logger.Error("SSE: failed to encode diff", "session_id", new.SessionID, "err", err)
				return
			}
			sm.Broadcast(new.SessionID, string(data))
		},
	}
}

// matches reports whether a diff touches any of the watched fields.
func matches(diff *domain.StateDiff, watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	for _, field := range watch {
		switch field {
		case "active":
			if diff.Active != nil {
				return true
			}
		case "registry":
			if diff.Registry != nil || diff.Order != nil {
				return true
			}
		case "playback":
			if diff.Playback != nil || diff.Cycle != nil {
				return true
			}
		case "deploy":
			if diff.Deploy != nil {
				return true
			}
		case "owner":
			if diff.Owner != nil {
				return true
			}
		case "focus":
			if diff.Focus != nil {
				return true
			}
		case "error":
			if diff.LastError != nil {
				return true
			}
		}
	}
	return false
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/pitchpilot"
	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// Opener starts sessions. *pitchpilot.Engine implements it.
type Opener interface {
	Open(ctx context.Context, sessionID string, viewports ...ports.Viewport) *pitchpilot.Session
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the open sessions of a host and keeps their snapshots in a store
// while they are open. It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store  ports.StateStore
	opener Opener

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	sessMu   sync.RWMutex
	sessions map[string]*pitchpilot.Session
	pending  map[string]*domain.Snapshot

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)

	// base outlives individual requests; sessions stop with CloseAll.
	base     context.Context
	cancel   context.CancelFunc
	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry (default: 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new Session Manager with the given snapshot store.
// Bind an Opener before creating sessions.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	base, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*pitchpilot.Session),
		pending:  make(map[string]*domain.Snapshot),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(), // Default to no-op
		base:     base,
		cancel:   cancel,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.persistLoop()
	return m
}

// Bind sets the engine used to open sessions.
// The engine should be built with the manager's Hooks so that state changes get persisted.
func (m *Manager) Bind(opener Opener) {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	m.opener = opener
}

// Hooks returns the lifecycle hooks that feed the manager's persistence.
func (m *Manager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, old, new *domain.Snapshot) {
			if structural(old, new) {
				m.enqueue(new)
			}
		},
	}
}

// structural reports whether a change is worth persisting. Reveal steps only
// move the active text and the reveal offset; they are skipped until playback settles.
func structural(old, new *domain.Snapshot) bool {
	switch {
	case old.Cycle != new.Cycle,
		old.Playback.Phase != new.Playback.Phase,
		old.Playback.Artifact != new.Playback.Artifact,
		old.Deploy != new.Deploy,
		len(old.Registry) != len(new.Registry),
		old.Focus != new.Focus,
		old.Owner != new.Owner,
		old.Draft != new.Draft,
		old.LastError != new.LastError,
		old.Theme.IsZero() != new.Theme.IsZero():
		return true
	case old.Theme != nil && new.Theme != nil && old.Theme.Name != new.Theme.Name:
		return true
	}
	return !new.Busy() && old.Active != new.Active
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create opens a new session with a random ID and stores its first snapshot.
func (m *Manager) Create(ctx context.Context, viewports ...ports.Viewport) (*pitchpilot.Session, error) {
	m.sessMu.RLock()
	opener := m.opener
	m.sessMu.RUnlock()
	if opener == nil {
		return nil, errors.New("session manager has no engine bound")
	}

	id := uuid.NewString()
	s := opener.Open(m.base, id, viewports...)

	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to read initial snapshot: %w", err)
	}

	m.sessMu.Lock()
	m.sessions[id] = s
	m.sessMu.Unlock()

	if err := m.save(ctx, id, snap); err != nil {
		m.sessMu.Lock()
		delete(m.sessions, id)
		m.sessMu.Unlock()
		s.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	m.logger.Info("session opened", "session_id", id)
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(sessionID string) (*pitchpilot.Session, error) {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Open returns the IDs of the sessions opened by this manager, sorted.
func (m *Manager) Open() []string {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops a session and removes its snapshot from the store.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	m.sessMu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	delete(m.pending, sessionID)
	m.sessMu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Close()

	if err := m.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	m.logger.Info("session closed", "session_id", sessionID)
	return nil
}

// CloseAll stops every session, removes their snapshots and stops persistence.
func (m *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.Open() {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	m.stopOnce.Do(func() {
		close(m.stop)
		m.cancel()
	})
	<-m.done
	return errors.Join(errs...)
}

// Load retrieves the stored snapshot of a session.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, sessionID)
		return err
	})
	return snap, err
}

// Delete removes the session snapshot from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// save writes a snapshot unless the session was closed in the meantime.
func (m *Manager) save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if !m.isOpen(sessionID) {
			return nil
		}
		return m.store.Save(ctx, sessionID, snap)
	})
}

func (m *Manager) isOpen(sessionID string) bool {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// enqueue keeps the latest snapshot per session; the persist loop writes it.
func (m *Manager) enqueue(snap *domain.Snapshot) {
	m.sessMu.Lock()
	m.pending[snap.SessionID] = snap
	m.sessMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) persistLoop() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			m.flush()
			return
		case <-m.wake:
			m.flush()
		}
	}
}

func (m *Manager) flush() {
	m.sessMu.Lock()
	batch := m.pending
	m.pending = make(map[string]*domain.Snapshot)
	m.sessMu.Unlock()

	for id, snap := range batch {
		if err := m.save(m.base, id, snap); err != nil {
			m.logger.Warn("failed to persist snapshot", "session_id", id, "err", err)
		}
	}
}

package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// Manager owns the live booking sessions and expires idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg    SessionConfig
	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewManager builds a session manager. ttl <= 0 means sessions never expire.
func NewManager(cfg SessionConfig, ttl time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		ttl:      ttl,
		logger:   logger.Component("booking-manager"),
		now:      now,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go m.janitor()
	}
	return m
}

// Create starts a new session for the given org and eagerly loads
// availability for the default timezone.
func (m *Manager) Create(ctx context.Context, orgID string) (*Session, error) {
	s := newSession(uuid.NewString(), orgID, m.cfg)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	if err := s.refreshAvailability(ctx, 0, s.displayTZ); err != nil {
		// The session is still usable; availability shows as a warning until
		// the next fetch succeeds.
		m.logger.Warn("initial availability fetch failed", "session_id", s.id, "error", err)
	}
	m.logger.Info("booking session created", "session_id", s.id, "org_id", orgID)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the expiry janitor.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Manager) janitor() {
	interval := m.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	now := m.now()
	var expired []string

	m.mu.RLock()
	for id, s := range m.sessions {
		if s.idleSince(now) > m.ttl {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return
	}
	m.mu.Lock()
	for _, id := range expired {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	m.logger.Info("expired idle booking sessions", "count", len(expired))
}

// Package session tracks per-session tool permission overrides: a
// session may trust a tool outright, force per-command confirmation, or
// trust every tool at once. Overrides are consulted before engine
// evaluation and live only in memory.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentwarden/warden/internal/logger"
	"github.com/agentwarden/warden/internal/trust"
)

var log = logger.New("session")

// DefaultTTL is how long a session survives without activity.
const DefaultTTL = time.Hour

// Override is a session-scoped adjustment applied before engine
// evaluation.
type Override int

const (
	// OverrideNone defers to the engine.
	OverrideNone Override = iota
	// OverrideTrust approves the tool without evaluation.
	OverrideTrust
	// OverrideAsk forces confirmation even when a rule would match.
	OverrideAsk
)

func (o Override) String() string {
	switch o {
	case OverrideTrust:
		return "trust"
	case OverrideAsk:
		return "ask"
	}
	return "none"
}

type session struct {
	trustAll  bool
	overrides map[trust.Tool]Override
	lastSeen  time.Time
}

// Status is a read-only snapshot of one session.
type Status struct {
	ID        string                  `json:"id"`
	TrustAll  bool                    `json:"trust_all"`
	Tools     map[trust.Tool]Override `json:"tools,omitempty"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// Manager owns the live sessions. Safe for concurrent use. Expired
// sessions are purged lazily on access.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a manager whose sessions expire after ttl of
// inactivity; ttl <= 0 means DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: map[string]*session{},
		ttl:      ttl,
		now:      time.Now,
	}
}

// Begin creates a session and returns its id.
func (m *Manager) Begin() string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(id)
	log.Debug("session %s started", id)
	return id
}

// Trust approves tool for the rest of the session.
func (m *Manager) Trust(id string, tool trust.Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(id).overrides[tool] = OverrideTrust
	log.Debug("session %s: %s trusted", id, tool)
}

// Untrust forces confirmation for tool for the rest of the session,
// overriding matching rules and a TrustAll.
func (m *Manager) Untrust(id string, tool trust.Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(id).overrides[tool] = OverrideAsk
	log.Debug("session %s: %s untrusted", id, tool)
}

// TrustAll approves every tool for the rest of the session, replacing
// any per-tool overrides.
func (m *Manager) TrustAll(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getLocked(id)
	s.trustAll = true
	s.overrides = map[trust.Tool]Override{}
	log.Debug("session %s: all tools trusted", id)
}

// Reset clears every override, returning the session to plain engine
// evaluation.
func (m *Manager) Reset(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getLocked(id)
	s.trustAll = false
	s.overrides = map[trust.Tool]Override{}
	log.Debug("session %s: overrides reset", id)
}

// ResetTool removes the per-tool override; a session-wide TrustAll, if
// set, applies again.
func (m *Manager) ResetTool(id string, tool trust.Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.getLocked(id).overrides, tool)
}

// Override resolves the session's adjustment for tool. An unknown or
// expired session defers to the engine.
func (m *Manager) Override(id string, tool trust.Tool) Override {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookupLocked(id)
	if s == nil {
		return OverrideNone
	}
	if o, ok := s.overrides[tool]; ok {
		return o
	}
	if s.trustAll {
		return OverrideTrust
	}
	return OverrideNone
}

// Status snapshots a session; ok is false for an unknown or expired id.
func (m *Manager) Status(id string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookupLocked(id)
	if s == nil {
		return Status{}, false
	}
	tools := make(map[trust.Tool]Override, len(s.overrides))
	for tool, o := range s.overrides {
		tools[tool] = o
	}
	return Status{
		ID:        id,
		TrustAll:  s.trustAll,
		Tools:     tools,
		ExpiresAt: s.lastSeen.Add(m.ttl),
	}, true
}

// End discards the session.
func (m *Manager) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()
	return len(m.sessions)
}

// getLocked returns the session, creating it when missing, and marks it
// seen.
func (m *Manager) getLocked(id string) *session {
	m.purgeLocked()
	s, ok := m.sessions[id]
	if !ok {
		s = &session{overrides: map[trust.Tool]Override{}}
		m.sessions[id] = s
	}
	s.lastSeen = m.now()
	return s
}

// lookupLocked returns the session or nil, without creating one.
func (m *Manager) lookupLocked(id string) *session {
	m.purgeLocked()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.lastSeen = m.now()
	return s
}

func (m *Manager) purgeLocked() {
	cutoff := m.now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			log.Debug("session %s expired", id)
		}
	}
}

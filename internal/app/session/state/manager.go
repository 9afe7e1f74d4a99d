package state

import (
	"sort"
	"time"
)

// Manager holds the lifecycle flags and scope of the tracking session.
// It is not safe for concurrent use; the session manager serialises access.
type Manager struct {
	// Session identity
	sessionID string

	// Session lifecycle
	phase     Phase
	startedAt *time.Time
	mode      Mode

	// Scope: empty means everyone present is tracked
	scope map[string]struct{}
}

// New creates a state manager in the inactive phase.
func New() *Manager {
	return &Manager{
		phase: PhaseInactive,
		scope: make(map[string]struct{}),
	}
}

// Activate moves the session to the active phase with a fresh scope.
func (m *Manager) Activate(sessionID string, now time.Time) {
	m.sessionID = sessionID
	m.phase = PhaseActive
	m.startedAt = &now
	m.mode = ModeAllUsers
	m.scope = make(map[string]struct{})
}

// Deactivate ends the session and clears the scope.
func (m *Manager) Deactivate() {
	m.sessionID = ""
	m.phase = PhaseInactive
	m.startedAt = nil
	m.mode = ModeAllUsers
	m.scope = make(map[string]struct{})
}

// IsActive returns true while a session is running.
func (m *Manager) IsActive() bool {
	return m.phase == PhaseActive
}

// Phase returns the current phase.
func (m *Manager) Phase() Phase {
	return m.phase
}

// SessionID returns the current session ID, empty when inactive.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// StartedAt returns when the session was started, nil when inactive.
func (m *Manager) StartedAt() *time.Time {
	return m.startedAt
}

// Mode returns the tracking mode chosen at start.
func (m *Manager) Mode() Mode {
	return m.mode
}

// SetMode records the tracking mode.
func (m *Manager) SetMode(mode Mode) {
	m.mode = mode
}

// AddToScope restricts tracking to the scope, adding userID to it.
func (m *Manager) AddToScope(userID string) {
	m.scope[userID] = struct{}{}
}

// InScope returns true if userID is tracked. An empty scope tracks everyone.
func (m *Manager) InScope(userID string) bool {
	if len(m.scope) == 0 {
		return true
	}
	_, ok := m.scope[userID]
	return ok
}

// Scope returns the scoped user IDs, sorted.
func (m *Manager) Scope() []string {
	ids := make([]string, 0, len(m.scope))
	for id := range m.scope {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

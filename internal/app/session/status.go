package session

import (
	"context"
	"time"

	"github.com/osa030/vctrack/internal/app/session/state"
)

// UserStatus is the live view of one tracked user.
type UserStatus struct {
	UserID      string
	DisplayName string
	Present     bool
	Elapsed     time.Duration
	Coins       int
	Boost       int
}

// Status is a read-only snapshot of the session.
type Status struct {
	Phase        state.Phase
	SessionID    string
	StartedAt    *time.Time
	Mode         state.Mode
	ChannelID    string
	Scope        []string
	Users        []UserStatus
	TotalElapsed time.Duration
	TotalCoins   int
	Subscribers  int
}

// Status returns the session as it stands now. Coins are projected with the
// user's current roles; users who left the guild are projected without boosts.
func (m *Manager) Status(ctx context.Context) *Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &Status{
		Phase:       m.stateMgr.Phase(),
		SessionID:   m.stateMgr.SessionID(),
		Mode:        m.stateMgr.Mode(),
		ChannelID:   m.targetChannelID,
		Scope:       m.stateMgr.Scope(),
		Subscribers: m.notification.SubscriberCount(),
	}
	if t := m.stateMgr.StartedAt(); t != nil {
		started := *t
		st.StartedAt = &started
	}
	if !m.stateMgr.IsActive() {
		return st
	}

	now := m.now()
	for _, e := range m.entries.Snapshot() {
		var roles []string
		if mem, ok := m.presence.Member(ctx, e.UserID); ok {
			roles = mem.Roles
		}
		elapsed := e.Elapsed(now)
		res := m.compiler.Calculator.Compute(elapsed, roles)

		st.Users = append(st.Users, UserStatus{
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Present:     e.IsOpen(),
			Elapsed:     elapsed,
			Coins:       res.Coins,
			Boost:       res.BoostPercent,
		})
		st.TotalElapsed += elapsed
		st.TotalCoins += res.Coins
	}
	return st
}

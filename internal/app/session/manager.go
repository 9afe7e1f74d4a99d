// Package session provides the tracking session manager.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vctrack/internal/app/notification"
	"github.com/osa030/vctrack/internal/app/session/registry"
	"github.com/osa030/vctrack/internal/app/session/state"
	"github.com/osa030/vctrack/internal/domain/entry"
	"github.com/osa030/vctrack/internal/domain/member"
	"github.com/osa030/vctrack/internal/domain/report"
	"github.com/osa030/vctrack/internal/domain/reward"
	"github.com/osa030/vctrack/internal/infra/config"
)

var (
	ErrAlreadyActive   = errors.New("tracking is already active")
	ErrNotActive       = errors.New("no active tracking session")
	ErrChannelNotFound = errors.New("target voice channel not found")
	ErrDeliveryFailure = errors.New("failed to deliver report")
)

// publishTimeout bounds one report hand-off to the sink.
const publishTimeout = 10 * time.Second

// Channel is a voice channel and the members currently connected to it.
type Channel struct {
	ID      string
	Name    string
	Members []member.Member
}

// Presence answers questions about who is where in the guild.
type Presence interface {
	// Channel resolves a voice channel. Returns ErrChannelNotFound when it does not exist.
	Channel(ctx context.Context, channelID string) (*Channel, error)
	// VoiceChannelOf returns the voice channel the user is connected to.
	VoiceChannelOf(ctx context.Context, userID string) (string, bool)
	// Member returns the user's guild membership. False when the user left the guild.
	Member(ctx context.Context, userID string) (member.Member, bool)
}

// ReportSink receives every compiled report.
type ReportSink interface {
	Publish(ctx context.Context, sessionID string, r *report.Report) error
}

// VoiceTransition is a user's move between voice channels.
// An empty channel ID means not connected.
type VoiceTransition struct {
	UserID       string
	OldChannelID string
	NewChannelID string
	DisplayName  string
}

// Outcome describes what a voice transition did to the session.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeOpened
	OutcomeClosed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeOpened:
		return "opened"
	case OutcomeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StartSummary describes a freshly started session.
type StartSummary struct {
	SessionID   string
	Mode        state.Mode
	ScopeUser   *member.UserRef
	ChannelName string
	ActiveCount int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithReportSink publishes every compiled report to sink.
func WithReportSink(sink ReportSink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// Manager manages the tracking session. Every operation runs under a single
// mutex so commands and voice events are applied one at a time.
type Manager struct {
	mu sync.Mutex

	// Configuration
	targetChannelID string
	compiler        report.Compiler

	// Components
	stateMgr     *state.Manager
	entries      *registry.EntryRegistry
	presence     Presence
	notification *notification.Manager
	sink         ReportSink
	publishing   sync.WaitGroup

	now func() time.Time
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, presence Presence, opts ...Option) *Manager {
	m := &Manager{
		targetChannelID: cfg.Discord.TargetChannelID,
		compiler: report.Compiler{
			Calculator: reward.Calculator{
				Block:         cfg.Block(),
				CoinsPerBlock: cfg.Tracking.CoinsPerBlock,
				Boosts:        reward.BoostTable(cfg.Tracking.RoleBoosts),
			},
			Layout: report.Layout{
				CharBudget: cfg.Report.CharBudget,
				MaxFields:  cfg.Report.MaxFields,
			},
		},
		stateMgr:     state.New(),
		entries:      registry.NewEntryRegistry(),
		presence:     presence,
		notification: notification.NewManager(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Notifications returns the notification manager for session events.
func (m *Manager) Notifications() *notification.Manager {
	return m.notification
}

// TargetChannelID returns the tracked voice channel.
func (m *Manager) TargetChannelID() string {
	return m.targetChannelID
}

// Start starts a session. When scopeUser is set, only that user is tracked
// until more users are added.
func (m *Manager) Start(ctx context.Context, scopeUser *member.UserRef) (*StartSummary, error) {
	m.mu.Lock()

	if m.stateMgr.IsActive() {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}

	ch, err := m.presence.Channel(ctx, m.targetChannelID)
	if err != nil {
		m.mu.Unlock()
		if errors.Is(err, ErrChannelNotFound) {
			return nil, err
		}
		return nil, errors.Mark(errors.Wrapf(err, "resolve channel %s", m.targetChannelID), ErrChannelNotFound)
	}

	now := m.now()
	sessionID := uuid.New().String()
	m.stateMgr.Activate(sessionID, now)
	m.entries.Reset()

	if scopeUser != nil {
		m.stateMgr.AddToScope(scopeUser.ID)
		m.stateMgr.SetMode(state.ModeSpecificUser)
	}

	for _, mem := range ch.Members {
		if !m.stateMgr.InScope(mem.ID) {
			continue
		}
		m.entries.Put(entry.New(mem.ID, mem.Tag, now))
	}

	summary := &StartSummary{
		SessionID:   sessionID,
		Mode:        m.stateMgr.Mode(),
		ScopeUser:   scopeUser,
		ChannelName: ch.Name,
		ActiveCount: m.entries.Len(),
	}
	m.mu.Unlock()

	zlog.Info().Msgf("phase changed: phase=ACTIVE session_id=%s mode=%s active=%d", sessionID, summary.Mode, summary.ActiveCount)
	m.notification.Broadcast(&notification.Event{
		Type:      notification.EventStarted,
		SessionID: sessionID,
		Time:      now,
	})

	return summary, nil
}

// AddUser adds a user to the session scope. A user who is in the target
// channel starts a fresh interval with no banked time.
func (m *Manager) AddUser(ctx context.Context, user member.UserRef) error {
	m.mu.Lock()

	if !m.stateMgr.IsActive() {
		m.mu.Unlock()
		return ErrNotActive
	}

	now := m.now()
	sessionID := m.stateMgr.SessionID()
	m.stateMgr.AddToScope(user.ID)

	present := false
	if chID, ok := m.presence.VoiceChannelOf(ctx, user.ID); ok && chID == m.targetChannelID {
		m.entries.Put(entry.New(user.ID, user.Tag, now))
		present = true
	}
	m.mu.Unlock()

	zlog.Info().Msgf("user added: session_id=%s user_id=%s present=%t", sessionID, user.ID, present)
	m.notification.Broadcast(&notification.Event{
		Type:        notification.EventUserAdded,
		SessionID:   sessionID,
		UserID:      user.ID,
		DisplayName: user.Tag,
		Time:        now,
	})

	return nil
}

// End ends the session and returns its report. The store and scope are
// cleared before End returns, whether or not the report is later delivered.
// The report is handed to the sink in the background.
func (m *Manager) End(ctx context.Context) (*report.Report, error) {
	m.mu.Lock()

	if !m.stateMgr.IsActive() {
		m.mu.Unlock()
		return nil, ErrNotActive
	}

	now := m.now()
	sessionID := m.stateMgr.SessionID()
	rep := m.compiler.Compile(m.entries.Snapshot(), now, func(userID string) (member.Member, bool) {
		return m.presence.Member(ctx, userID)
	})

	m.stateMgr.Deactivate()
	m.entries.Reset()
	m.mu.Unlock()

	zlog.Info().Msgf("phase changed: phase=INACTIVE session_id=%s users=%d pages=%d total_coins=%d",
		sessionID, len(rep.Lines), len(rep.Pages), rep.TotalCoins)
	m.notification.Broadcast(&notification.Event{
		Type:      notification.EventEnded,
		SessionID: sessionID,
		Time:      now,
	})

	if m.sink != nil {
		m.publishing.Add(1)
		go m.publish(sessionID, rep)
	}

	return rep, nil
}

// publish hands rep to the sink. It is detached from the command context,
// which ends as soon as the reply is sent.
func (m *Manager) publish(sessionID string, rep *report.Report) {
	defer m.publishing.Done()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := m.sink.Publish(ctx, sessionID, rep); err != nil {
		zlog.Error().Msgf("failed to publish report: session_id=%s err=%v", sessionID, err)
		return
	}
	zlog.Debug().Msgf("report published: session_id=%s", sessionID)
}

// Drain waits until every pending report hand-off has finished.
func (m *Manager) Drain() {
	m.publishing.Wait()
}

// HandleVoice applies a voice transition to the session.
func (m *Manager) HandleVoice(t VoiceTransition) Outcome {
	m.mu.Lock()

	if !m.stateMgr.IsActive() || !m.stateMgr.InScope(t.UserID) {
		m.mu.Unlock()
		return OutcomeIgnored
	}

	now := m.now()
	sessionID := m.stateMgr.SessionID()
	entering := t.NewChannelID == m.targetChannelID && t.OldChannelID != m.targetChannelID
	leaving := t.OldChannelID == m.targetChannelID && t.NewChannelID != m.targetChannelID

	var outcome Outcome
	switch {
	case entering:
		e, err := m.entries.Get(t.UserID)
		if err != nil {
			e = &entry.Entry{UserID: t.UserID}
		}
		if t.DisplayName != "" {
			e.DisplayName = t.DisplayName
		}
		e.Open(now)
		m.entries.Put(e)
		outcome = OutcomeOpened
	case leaving:
		e, err := m.entries.Get(t.UserID)
		if err == nil && e.Close(now) {
			outcome = OutcomeClosed
		}
	}
	m.mu.Unlock()

	var eventType notification.EventType
	switch outcome {
	case OutcomeOpened:
		eventType = notification.EventEntered
	case OutcomeClosed:
		eventType = notification.EventLeft
	default:
		return outcome
	}

	zlog.Debug().Msgf("voice transition: session_id=%s user_id=%s outcome=%s", sessionID, t.UserID, outcome)
	m.notification.Broadcast(&notification.Event{
		Type:        eventType,
		SessionID:   sessionID,
		UserID:      t.UserID,
		DisplayName: t.DisplayName,
		Time:        now,
	})
	return outcome
}

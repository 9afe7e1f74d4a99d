package discord

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vctrack/internal/app/session"
	"github.com/osa030/vctrack/internal/app/session/state"
	"github.com/osa030/vctrack/internal/domain/member"
	"github.com/osa030/vctrack/internal/domain/report"
	"github.com/osa030/vctrack/internal/infra/config"
)

type fakeTracker struct {
	summary *session.StartSummary
	report  *report.Report
	err     error
	started []*member.UserRef
	added   []member.UserRef
	ended   int
	voice   []session.VoiceTransition
}

func (f *fakeTracker) Start(_ context.Context, scopeUser *member.UserRef) (*session.StartSummary, error) {
	f.started = append(f.started, scopeUser)
	return f.summary, f.err
}

func (f *fakeTracker) AddUser(_ context.Context, user member.UserRef) error {
	f.added = append(f.added, user)
	return f.err
}

func (f *fakeTracker) End(context.Context) (*report.Report, error) {
	f.ended++
	return f.report, f.err
}

func (f *fakeTracker) HandleVoice(t session.VoiceTransition) session.Outcome {
	f.voice = append(f.voice, t)
	return session.OutcomeOpened
}

type fakeResponder struct {
	replies  []Reply
	failAt   map[int]error // index of the reply attempt that fails
	calls    int
	deferred int
	deferErr error
}

func (f *fakeResponder) Defer() error {
	if f.deferErr != nil {
		return f.deferErr
	}
	f.deferred++
	return nil
}

func (f *fakeResponder) Reply(r Reply) error {
	idx := f.calls
	f.calls++
	if err := f.failAt[idx]; err != nil {
		return err
	}
	f.replies = append(f.replies, r)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Discord: config.DiscordConfig{
			GuildID: "guild",
			Roles:   config.RolesConfig{Admin: "admin", Host: "host"},
		},
	}
	require.NoError(t, defaults.Set(cfg))
	return cfg
}

func authorised(name string) Command {
	return Command{Name: name, GuildID: "guild", UserID: "caller", Roles: []string{"host"}}
}

func multiPageReport() *report.Report {
	return &report.Report{
		GeneratedAt: time.Date(2025, 1, 10, 22, 0, 0, 0, time.UTC),
		Pages: []report.Page{
			{Title: report.Title, Description: report.Description, Fields: []report.Field{{Name: "a", Value: "1", Inline: true}}},
			{Title: report.ContinuedTitle, Fields: []report.Field{{Name: "b", Value: "2", Inline: true}}},
			{Title: report.ContinuedTitle, Fields: []report.Field{{Name: report.TotalsName, Value: "3"}}},
		},
	}
}

func TestHandle_Unauthorized(t *testing.T) {
	cfg := testConfig(t)
	tracker := &fakeTracker{}
	h := NewCommandHandler(cfg, tracker)

	for _, name := range []string{CommandStart, CommandEnd, CommandAddUser} {
		r := &fakeResponder{}
		cmd := Command{Name: name, GuildID: "guild", UserID: "u", Roles: []string{"member"}}

		require.NoError(t, h.Handle(context.Background(), cmd, r))

		require.Len(t, r.replies, 1)
		assert.True(t, r.replies[0].Ephemeral)
		assert.Equal(t, cfg.Messages.Unauthorized, r.replies[0].Content)
	}

	assert.Empty(t, tracker.started)
	assert.Empty(t, tracker.added)
	assert.Zero(t, tracker.ended)
}

func TestHandle_WrongGuild(t *testing.T) {
	cfg := testConfig(t)
	tracker := &fakeTracker{}
	r := &fakeResponder{}

	cmd := authorised(CommandStart)
	cmd.GuildID = "elsewhere"
	require.NoError(t, NewCommandHandler(cfg, tracker).Handle(context.Background(), cmd, r))

	require.Len(t, r.replies, 1)
	assert.Equal(t, cfg.Messages.WrongGuild, r.replies[0].Content)
	assert.Empty(t, tracker.started)
}

func TestHandle_Start(t *testing.T) {
	cfg := testConfig(t)
	tracker := &fakeTracker{summary: &session.StartSummary{
		Mode:        state.ModeSpecificUser,
		ScopeUser:   &member.UserRef{ID: "u1", Tag: "alice"},
		ChannelName: "Game Night",
		ActiveCount: 1,
	}}
	r := &fakeResponder{}
	h := NewCommandHandler(cfg, tracker)
	h.now = func() time.Time { return time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC) }

	cmd := authorised(CommandStart)
	cmd.User = &member.UserRef{ID: "u1", Tag: "alice"}
	require.NoError(t, h.Handle(context.Background(), cmd, r))

	require.Len(t, tracker.started, 1)
	assert.Equal(t, "u1", tracker.started[0].ID)

	require.Len(t, r.replies, 1)
	require.Len(t, r.replies[0].Embeds, 1)
	embed := r.replies[0].Embeds[0]
	assert.Equal(t, "Voice Tracking Started", embed.Title)
	assert.Equal(t, 0x00FF00, embed.Color)
	assert.Equal(t, "Started tracking in Game Night", embed.Description)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Tracking specific user: alice", embed.Fields[0].Value)
	assert.Equal(t, "1", embed.Fields[1].Value)
	assert.Equal(t, "2025-01-10T20:00:00Z", embed.Timestamp)
}

func TestHandle_StartAllUsers(t *testing.T) {
	tracker := &fakeTracker{summary: &session.StartSummary{ChannelName: "vc", ActiveCount: 4}}
	r := &fakeResponder{}

	require.NoError(t, NewCommandHandler(testConfig(t), tracker).Handle(context.Background(), authorised(CommandStart), r))

	require.Len(t, tracker.started, 1)
	assert.Nil(t, tracker.started[0])
	assert.Equal(t, "Tracking all users", r.replies[0].Embeds[0].Fields[0].Value)
	assert.Equal(t, "4", r.replies[0].Embeds[0].Fields[1].Value)
}

func TestHandle_ErrorReplies(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name    string
		command string
		err     error
		want    string
	}{
		{"already active", CommandStart, session.ErrAlreadyActive, "Tracking is already active!"},
		{"channel not found", CommandStart, errors.Mark(errors.New("404"), session.ErrChannelNotFound), "Could not find the target voice channel!"},
		{"end while inactive", CommandEnd, session.ErrNotActive, "No active tracking session!"},
		{"add while inactive", CommandAddUser, session.ErrNotActive, "No active tracking session!"},
		{"unexpected", CommandEnd, errors.New("boom"), cfg.Messages.DefaultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeResponder{}
			cmd := authorised(tt.command)
			cmd.User = &member.UserRef{ID: "u1", Tag: "alice"}

			require.NoError(t, NewCommandHandler(cfg, &fakeTracker{err: tt.err}).Handle(context.Background(), cmd, r))

			require.Len(t, r.replies, 1)
			assert.Equal(t, tt.want, r.replies[0].Content)
			assert.False(t, r.replies[0].Ephemeral)
		})
	}
}

func TestHandle_AddUser(t *testing.T) {
	tracker := &fakeTracker{}
	r := &fakeResponder{}

	cmd := authorised(CommandAddUser)
	cmd.User = &member.UserRef{ID: "u9", Tag: "bob"}
	require.NoError(t, NewCommandHandler(testConfig(t), tracker).Handle(context.Background(), cmd, r))

	assert.Equal(t, []member.UserRef{{ID: "u9", Tag: "bob"}}, tracker.added)
	require.Len(t, r.replies, 1)
	assert.Equal(t, "Now tracking user: bob", r.replies[0].Content)
}

func TestHandle_AddUserWithoutOption(t *testing.T) {
	cfg := testConfig(t)
	tracker := &fakeTracker{}
	r := &fakeResponder{}

	require.NoError(t, NewCommandHandler(cfg, tracker).Handle(context.Background(), authorised(CommandAddUser), r))

	assert.Empty(t, tracker.added)
	assert.Equal(t, cfg.Messages.MissingUser, r.replies[0].Content)
}

func TestHandle_EndDeliversPagesInOrder(t *testing.T) {
	tracker := &fakeTracker{report: multiPageReport()}
	r := &fakeResponder{}

	require.NoError(t, NewCommandHandler(testConfig(t), tracker).Handle(context.Background(), authorised(CommandEnd), r))

	require.Len(t, r.replies, 3)
	assert.Equal(t, report.Title, r.replies[0].Embeds[0].Title)
	assert.Equal(t, report.Description, r.replies[0].Embeds[0].Description)
	assert.Equal(t, "b", r.replies[1].Embeds[0].Fields[0].Name)
	assert.True(t, r.replies[1].Embeds[0].Fields[0].Inline)
	assert.Equal(t, report.TotalsName, r.replies[2].Embeds[0].Fields[0].Name)
	for _, reply := range r.replies {
		assert.Equal(t, 0x0099FF, reply.Embeds[0].Color)
		assert.Equal(t, "2025-01-10T22:00:00Z", reply.Embeds[0].Timestamp)
	}
}

func TestHandle_EndDeliveryFailure(t *testing.T) {
	cfg := testConfig(t)
	tracker := &fakeTracker{report: multiPageReport()}
	r := &fakeResponder{failAt: map[int]error{1: errors.New("unknown webhook")}}

	err := NewCommandHandler(cfg, tracker).Handle(context.Background(), authorised(CommandEnd), r)

	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrDeliveryFailure)
	assert.Equal(t, 1, tracker.ended)

	// Page 1 stays, page 2 fails, one notice is sent, page 3 is never attempted
	require.Len(t, r.replies, 2)
	assert.Equal(t, report.Title, r.replies[0].Embeds[0].Title)
	assert.Equal(t, cfg.Messages.DeliveryFailure, r.replies[1].Content)
	assert.Equal(t, 3, r.calls)
}

func TestHandle_DefersSlowCommands(t *testing.T) {
	tests := []struct {
		name         string
		cmd          Command
		wantDeferred int
	}{
		{"start", authorised(CommandStart), 1},
		{"end", authorised(CommandEnd), 1},
		{"adduser", Command{Name: CommandAddUser, GuildID: "guild", UserID: "caller", Roles: []string{"host"}, User: &member.UserRef{ID: "u1", Tag: "alice"}}, 0},
		{"denied", Command{Name: CommandEnd, GuildID: "guild", UserID: "u", Roles: []string{"member"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &fakeTracker{
				summary: &session.StartSummary{ChannelName: "vc"},
				report:  multiPageReport(),
			}
			r := &fakeResponder{}

			require.NoError(t, NewCommandHandler(testConfig(t), tracker).Handle(context.Background(), tt.cmd, r))

			assert.Equal(t, tt.wantDeferred, r.deferred)
			assert.NotEmpty(t, r.replies)
		})
	}
}

func TestHandle_EndKeepsSessionWhenAcknowledgeFails(t *testing.T) {
	tracker := &fakeTracker{report: multiPageReport()}
	r := &fakeResponder{deferErr: errors.New("unknown interaction")}

	err := NewCommandHandler(testConfig(t), tracker).Handle(context.Background(), authorised(CommandEnd), r)

	require.Error(t, err)
	assert.Zero(t, tracker.ended)
	assert.Empty(t, r.replies)
}

func TestHandle_AddUserCustomMessage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Messages.UserAdded = "100% in: %s"
	r := &fakeResponder{}

	cmd := authorised(CommandAddUser)
	cmd.User = &member.UserRef{ID: "u9", Tag: "bob"}
	require.NoError(t, NewCommandHandler(cfg, &fakeTracker{}).Handle(context.Background(), cmd, r))

	require.Len(t, r.replies, 1)
	assert.Equal(t, "100% in: bob", r.replies[0].Content)
}

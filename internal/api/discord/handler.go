package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vctrack/internal/app/guard"
	"github.com/osa030/vctrack/internal/app/session"
	"github.com/osa030/vctrack/internal/domain/member"
	"github.com/osa030/vctrack/internal/domain/report"
	"github.com/osa030/vctrack/internal/infra/config"
)

// Tracker is the session API the transport drives.
type Tracker interface {
	Start(ctx context.Context, scopeUser *member.UserRef) (*session.StartSummary, error)
	AddUser(ctx context.Context, user member.UserRef) error
	End(ctx context.Context) (*report.Report, error)
	HandleVoice(t session.VoiceTransition) session.Outcome
}

// Command is a parsed slash command invocation.
type Command struct {
	Name    string
	GuildID string
	UserID  string
	Roles   []string
	User    *member.UserRef // "user" option, nil when omitted
}

// CommandHandler authorises commands and applies them to the tracker.
type CommandHandler struct {
	cfg     *config.Config
	tracker Tracker
	guards  *guard.Chain
	now     func() time.Time
}

// NewCommandHandler creates a command handler guarded by the configured
// guild and command roles.
func NewCommandHandler(cfg *config.Config, tracker Tracker) *CommandHandler {
	return &CommandHandler{
		cfg:     cfg,
		tracker: tracker,
		guards: guard.NewChain(
			guard.NewGuildGuard(cfg.Discord.GuildID),
			guard.NewRoleGuard(cfg.CommandRoles()...),
		),
		now: time.Now,
	}
}

// Handle runs one command and sends its replies.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command, r Responder) error {
	result := h.guards.Execute(ctx, guard.Invocation{
		Command: cmd.Name,
		GuildID: cmd.GuildID,
		UserID:  cmd.UserID,
		Roles:   cmd.Roles,
	})
	if !result.Allowed {
		zlog.Info().Msgf("command rejected: command=%s user_id=%s code=%s", cmd.Name, cmd.UserID, result.Code)
		return r.Reply(Reply{Content: h.cfg.GetMessage(result.Code), Ephemeral: true})
	}

	zlog.Info().Msgf("command received: command=%s user_id=%s", cmd.Name, cmd.UserID)

	switch cmd.Name {
	case CommandStart:
		return h.handleStart(ctx, cmd, r)
	case CommandEnd:
		return h.handleEnd(ctx, r)
	case CommandAddUser:
		return h.handleAddUser(ctx, cmd, r)
	default:
		return r.Reply(Reply{Content: h.cfg.GetMessage("unknown_command"), Ephemeral: true})
	}
}

func (h *CommandHandler) handleStart(ctx context.Context, cmd Command, r Responder) error {
	if err := r.Defer(); err != nil {
		return err
	}
	summary, err := h.tracker.Start(ctx, cmd.User)
	if err != nil {
		return h.replyError(r, err)
	}
	return r.Reply(Reply{Embeds: embedsOf(startEmbed(summary, h.cfg.Report.StartColor, h.now()))})
}

func (h *CommandHandler) handleAddUser(ctx context.Context, cmd Command, r Responder) error {
	if cmd.User == nil {
		return r.Reply(Reply{Content: h.cfg.GetMessage("missing_user"), Ephemeral: true})
	}
	if err := h.tracker.AddUser(ctx, *cmd.User); err != nil {
		return h.replyError(r, err)
	}
	return r.Reply(Reply{Content: h.cfg.UserAddedMessage(cmd.User.Tag)})
}

// handleEnd acknowledges before ending, so a dead interaction never resets
// the session.
func (h *CommandHandler) handleEnd(ctx context.Context, r Responder) error {
	if err := r.Defer(); err != nil {
		return err
	}
	rep, err := h.tracker.End(ctx)
	if err != nil {
		return h.replyError(r, err)
	}
	return h.deliver(r, reportEmbeds(rep, h.cfg.Report.ResultsColor))
}

// deliver sends report pages in order. The session is already reset, so the
// first failure stops delivery, is reported once and is not retried.
func (h *CommandHandler) deliver(r Responder, pages []*discordgo.MessageEmbed) error {
	for i, page := range pages {
		if err := r.Reply(Reply{Embeds: embedsOf(page)}); err != nil {
			zlog.Error().Msgf("failed to send report page: page=%d/%d err=%v", i+1, len(pages), err)
			if rerr := r.Reply(Reply{Content: h.cfg.GetMessage("delivery_failure")}); rerr != nil {
				zlog.Error().Msgf("failed to send delivery failure notice: %v", rerr)
			}
			return errors.Mark(errors.Wrapf(err, "page %d/%d", i+1, len(pages)), session.ErrDeliveryFailure)
		}
	}
	return nil
}

func (h *CommandHandler) replyError(r Responder, err error) error {
	code := "default_error"
	switch {
	case errors.Is(err, session.ErrAlreadyActive):
		code = "already_active"
	case errors.Is(err, session.ErrNotActive):
		code = "not_active"
	case errors.Is(err, session.ErrChannelNotFound):
		code = "channel_not_found"
	default:
		zlog.Error().Msgf("command failed: %v", err)
	}
	return r.Reply(Reply{Content: h.cfg.GetMessage(code)})
}

package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vctrack/internal/app/session"
	"github.com/osa030/vctrack/internal/domain/member"
	"github.com/osa030/vctrack/internal/infra/config"
)

// commandTimeout bounds the Discord calls made while handling one command.
const commandTimeout = 10 * time.Second

// Bot wires gateway events to the tracker.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config
	tracker Tracker
	handler *CommandHandler
}

// NewBot creates a bot and registers its gateway handlers on s.
func NewBot(s *discordgo.Session, cfg *config.Config, tracker Tracker) *Bot {
	b := &Bot{
		session: s,
		cfg:     cfg,
		tracker: tracker,
		handler: NewCommandHandler(cfg, tracker),
	}

	s.AddHandler(b.onReady)
	s.AddHandler(b.onInteractionCreate)
	s.AddHandler(b.onVoiceStateUpdate)

	return b
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open discord session")
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	zlog.Info().Msgf("logged in: user=%s guilds=%d", r.User.String(), len(r.Guilds))

	if err := RegisterCommands(s, b.cfg.Discord.ApplicationID, b.cfg.Discord.GuildID, b.cfg.Discord.KeepGlobalCommands); err != nil {
		zlog.Error().Msgf("%v", err)
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmd, ok := parseCommand(i)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.handler.Handle(ctx, cmd, newInteractionResponder(s, i.Interaction)); err != nil {
		zlog.Error().Msgf("failed to handle command: command=%s err=%v", cmd.Name, err)
	}
}

func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.GuildID != b.cfg.Discord.GuildID {
		return
	}
	b.tracker.HandleVoice(voiceTransition(v))
}

// parseCommand extracts a slash command from an interaction.
func parseCommand(i *discordgo.InteractionCreate) (Command, bool) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return Command{}, false
	}
	data := i.ApplicationCommandData()

	cmd := Command{
		Name:    data.Name,
		GuildID: i.GuildID,
	}
	switch {
	case i.Member != nil:
		cmd.Roles = i.Member.Roles
		if i.Member.User != nil {
			cmd.UserID = i.Member.User.ID
		}
	case i.User != nil:
		cmd.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		if opt.Name != optionUser || opt.Type != discordgo.ApplicationCommandOptionUser {
			continue
		}
		id, _ := opt.Value.(string)
		if id == "" {
			continue
		}
		ref := member.UserRef{ID: id, Tag: id}
		if data.Resolved != nil {
			if u, ok := data.Resolved.Users[id]; ok {
				ref.Tag = u.String()
			}
		}
		cmd.User = &ref
	}

	return cmd, true
}

// voiceTransition maps a voice state update to a tracker transition.
func voiceTransition(v *discordgo.VoiceStateUpdate) session.VoiceTransition {
	t := session.VoiceTransition{
		UserID:       v.UserID,
		NewChannelID: v.ChannelID,
		DisplayName:  v.UserID,
	}
	if v.BeforeUpdate != nil {
		t.OldChannelID = v.BeforeUpdate.ChannelID
	}
	if v.Member != nil && v.Member.User != nil {
		t.DisplayName = v.Member.User.String()
	}
	return t
}

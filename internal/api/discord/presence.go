package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vctrack/internal/app/session"
	"github.com/osa030/vctrack/internal/domain/member"
)

// Presence answers presence questions from the gateway state cache,
// falling back to the REST API for members the cache does not hold.
type Presence struct {
	session *discordgo.Session
	guildID string
}

// NewPresence creates a presence adapter for one guild.
func NewPresence(s *discordgo.Session, guildID string) *Presence {
	return &Presence{session: s, guildID: guildID}
}

// Channel resolves a voice channel of the guild with its connected members.
func (p *Presence) Channel(ctx context.Context, channelID string) (*session.Channel, error) {
	ch, err := p.session.State.Channel(channelID)
	if err != nil {
		ch, err = p.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "channel %s", channelID), session.ErrChannelNotFound)
		}
	}
	if ch.GuildID != p.guildID || !isVoice(ch.Type) {
		return nil, session.ErrChannelNotFound
	}

	g, err := p.session.State.Guild(p.guildID)
	if err != nil {
		return nil, errors.Wrapf(err, "guild %s not in state", p.guildID)
	}

	result := &session.Channel{ID: ch.ID, Name: ch.Name}
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		m, ok := p.Member(ctx, vs.UserID)
		if !ok {
			zlog.Warn().Msgf("voice member not resolvable: user_id=%s", vs.UserID)
			continue
		}
		result.Members = append(result.Members, m)
	}
	return result, nil
}

// VoiceChannelOf returns the voice channel the user is connected to.
func (p *Presence) VoiceChannelOf(_ context.Context, userID string) (string, bool) {
	vs, err := p.session.State.VoiceState(p.guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// Member returns the user's guild membership.
func (p *Presence) Member(ctx context.Context, userID string) (member.Member, bool) {
	m, err := p.session.State.Member(p.guildID, userID)
	if err != nil {
		m, err = p.session.GuildMember(p.guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			zlog.Debug().Msgf("member lookup failed: user_id=%s err=%v", userID, err)
			return member.Member{}, false
		}
	}
	return toMember(m), true
}

func toMember(m *discordgo.Member) member.Member {
	out := member.Member{Roles: m.Roles}
	if m.User != nil {
		out.ID = m.User.ID
		out.Tag = m.User.String()
	}
	return out
}

func isVoice(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildVoice || t == discordgo.ChannelTypeGuildStageVoice
}

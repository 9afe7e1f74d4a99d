// Package discord connects the tracking session to the Discord gateway.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vctrack/internal/infra/config"
)

// Intents are the gateway intents the bot needs: guild structure,
// voice state updates and the member list for role lookups.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers

// NewSession creates a Discord session for the configured bot.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}

	s.Identify.Intents = Intents
	s.StateEnabled = true
	s.ShouldReconnectOnError = true
	s.LogLevel = discordgo.LogWarning

	return s, nil
}

// BridgeLogger routes discordgo's internal logging to zerolog.
func BridgeLogger() {
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		zlog.WithLevel(zerologLevel(msgL)).Msgf("discordgo: %s", fmt.Sprintf(format, a...))
	}
}

func zerologLevel(msgL int) zerolog.Level {
	switch msgL {
	case discordgo.LogError:
		return zerolog.ErrorLevel
	case discordgo.LogWarning:
		return zerolog.WarnLevel
	case discordgo.LogInformational:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

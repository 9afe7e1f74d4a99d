package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Command names.
const (
	CommandStart   = "starttracking"
	CommandEnd     = "endtracking"
	CommandAddUser = "adduser"

	optionUser = "user"
)

// Commands returns the guild slash commands.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandStart,
			Description: "Start tracking voice channel activity",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionUser,
					Description: "User to track (optional)",
					Required:    false,
				},
			},
		},
		{
			Name:        CommandEnd,
			Description: "End tracking and show results",
		},
		{
			Name:        CommandAddUser,
			Description: "Add a user to track",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionUser,
					Description: "User to track",
					Required:    true,
				},
			},
		},
	}
}

// commandAPI is the subset of the Discord REST API used for command registration.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands replaces the guild commands. Unless keepGlobal is set,
// global commands left by earlier deployments are deleted first; failures
// there are logged and do not stop registration.
func RegisterCommands(api commandAPI, appID, guildID string, keepGlobal bool) error {
	if !keepGlobal {
		pruneGlobalCommands(api, appID)
	}

	registered, err := api.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	if err != nil {
		return errors.Wrapf(err, "failed to register commands: guild_id=%s", guildID)
	}
	zlog.Info().Msgf("registered commands: guild_id=%s count=%d", guildID, len(registered))
	return nil
}

func pruneGlobalCommands(api commandAPI, appID string) {
	existing, err := api.ApplicationCommands(appID, "")
	if err != nil {
		zlog.Error().Msgf("failed to list global commands: %v", err)
		return
	}
	for _, cmd := range existing {
		if err := api.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			zlog.Error().Msgf("failed to delete global command: name=%s err=%v", cmd.Name, err)
			continue
		}
		zlog.Debug().Msgf("deleted global command: name=%s", cmd.Name)
	}
}

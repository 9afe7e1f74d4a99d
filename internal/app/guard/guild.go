package guard

import "context"

// GuildGuard checks that the command was invoked in the configured guild.
type GuildGuard struct {
	guildID string
}

// NewGuildGuard creates a guild guard.
func NewGuildGuard(guildID string) *GuildGuard {
	return &GuildGuard{guildID: guildID}
}

func (g *GuildGuard) Name() string {
	return "guild_guard"
}

func (g *GuildGuard) Description() string {
	return "Checks that the command comes from the configured guild"
}

func (g *GuildGuard) ReturnCodes() []string {
	return []string{"wrong_guild"}
}

func (g *GuildGuard) Check(ctx context.Context, inv Invocation) Result {
	// Direct messages carry no guild
	if inv.GuildID == "" || inv.GuildID != g.guildID {
		return Deny("wrong_guild")
	}
	return Allow()
}

package discord

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/osa030/vctrack/internal/app/session"
	"github.com/osa030/vctrack/internal/domain/report"
)

const startTitle = "Voice Tracking Started"

func startEmbed(s *session.StartSummary, color int, now time.Time) *discordgo.MessageEmbed {
	mode := "Tracking all users"
	if s.ScopeUser != nil {
		mode = "Tracking specific user: " + s.ScopeUser.Tag
	}

	return &discordgo.MessageEmbed{
		Title:       startTitle,
		Color:       color,
		Description: fmt.Sprintf("Started tracking in %s", s.ChannelName),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tracking Mode", Value: mode},
			{Name: "Active Tracked Users", Value: strconv.Itoa(s.ActiveCount)},
		},
		Timestamp: now.Format(time.RFC3339),
	}
}

func reportEmbeds(r *report.Report, color int) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(r.Pages))
	for _, p := range r.Pages {
		fields := make([]*discordgo.MessageEmbedField, 0, len(p.Fields))
		for _, f := range p.Fields {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   f.Name,
				Value:  f.Value,
				Inline: f.Inline,
			})
		}
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       p.Title,
			Description: p.Description,
			Color:       color,
			Fields:      fields,
			Timestamp:   r.GeneratedAt.Format(time.RFC3339),
		})
	}
	return embeds
}

func embedsOf(e *discordgo.MessageEmbed) []*discordgo.MessageEmbed {
	return []*discordgo.MessageEmbed{e}
}

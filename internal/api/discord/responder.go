package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// Reply is one message sent back to the invoker of a command.
type Reply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

// Responder sends replies to a command invocation. The first successful
// reply answers the interaction; every later one is a follow-up.
type Responder interface {
	// Defer acknowledges the invocation before slow work. The next reply
	// replaces the pending acknowledgement.
	Defer() error
	Reply(r Reply) error
}

// interactionResponder replies through the interaction webhook.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	answered    bool
	deferred    bool
}

func newInteractionResponder(s *discordgo.Session, i *discordgo.Interaction) *interactionResponder {
	return &interactionResponder{session: s, interaction: i}
}

func (r *interactionResponder) Defer() error {
	if r.answered {
		return nil
	}
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return errors.Wrap(err, "failed to defer interaction")
	}
	r.answered = true
	r.deferred = true
	return nil
}

func (r *interactionResponder) Reply(reply Reply) error {
	var flags discordgo.MessageFlags
	if reply.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	if !r.answered {
		err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: reply.Content,
				Embeds:  reply.Embeds,
				Flags:   flags,
			},
		})
		if err != nil {
			return errors.Wrap(err, "failed to respond to interaction")
		}
		r.answered = true
		return nil
	}

	if r.deferred {
		content, embeds := reply.Content, reply.Embeds
		_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
			Content: &content,
			Embeds:  &embeds,
		})
		if err != nil {
			return errors.Wrap(err, "failed to edit deferred response")
		}
		r.deferred = false
		return nil
	}

	_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content: reply.Content,
		Embeds:  reply.Embeds,
		Flags:   flags,
	})
	if err != nil {
		return errors.Wrap(err, "failed to send follow-up")
	}
	return nil
}

package handlers

import (
	"auction-bot/auction"
	"auction-bot/bot"
	"auction-bot/command"

	"github.com/bwmarrin/discordgo"
)

// unknownChannelType marks a channel whose type was not sent with the
// interaction.
const unknownChannelType discordgo.ChannelType = -1

const (
	msgForbidden      = "🚫 You do not have permission to run this command"
	msgUnknownCommand = "🚫 Internal error: unknown command."
)

// CommandDispatcher is the central handler for all application command
// interactions. Authorization is enforced by the auction control surface;
// this layer only maps commands to operations and results to replies.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case command.NameAuction:
		handleAuction(b, s, i, data)
	case command.NamePing:
		HandlePing(s, i)
	default:
		respondEphemeral(b, s, i, msgUnknownCommand)
	}
}

func handleAuction(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		respondEphemeral(b, s, i, msgUnknownCommand)
		return
	}
	sub := data.Options[0]

	switch sub.Name {
	case command.SubPanel:
		HandlePanel(b, s, i)
	case command.SubAdd:
		HandleAddChannel(b, s, i, resolveChannel(data, sub))
	case command.SubRemove:
		HandleRemoveChannel(b, s, i, stringOption(sub, command.OptionChannel))
	case command.SubStatus:
		HandleStatus(b, s, i)
	case command.SubCleanupNow:
		HandleCleanupNow(b, s, i)
	case command.SubToggleDeletion:
		HandleToggleDeletion(b, s, i)
	case command.SubToggleConfirmation:
		HandleToggleConfirmation(b, s, i)
	default:
		respondEphemeral(b, s, i, msgUnknownCommand)
	}
}

// resolveChannel reads the channel option of /auction add, taking its type
// from the resolved data Discord sends along with the interaction.
func resolveChannel(data discordgo.ApplicationCommandInteractionData, sub *discordgo.ApplicationCommandInteractionDataOption) auction.ChannelRef {
	id := stringOption(sub, command.OptionChannel)
	ref := auction.ChannelRef{ID: id, Type: unknownChannelType}
	if data.Resolved != nil {
		if ch, ok := data.Resolved.Channels[id]; ok && ch != nil {
			ref.Type = ch.Type
			ref.GuildID = ch.GuildID
		}
	}
	return ref
}

func stringOption(sub *discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range sub.Options {
		if opt.Name == name {
			if v, ok := opt.Value.(string); ok {
				return v
			}
		}
	}
	return ""
}

// resultContent renders a control result as a one-line reply.
func resultContent(res auction.Result) string {
	switch {
	case res.OK:
		return "✅ " + res.Message
	case res.Reason == auction.ReasonForbidden:
		return msgForbidden
	default:
		return "⚠️ " + res.Message
	}
}

func respondEphemeral(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.Logger.Warnw("failed to respond to interaction", "error", err)
	}
}

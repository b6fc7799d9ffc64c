package handlers

import (
	"strings"

	"auction-bot/bot"
	"auction-bot/command"
	"auction-bot/utils"

	"github.com/bwmarrin/discordgo"
)

const maxChoices = 25

// HandleAutocomplete handles all autocomplete interactions.
func HandleAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if !command.IsAuctionSubcommand(data, command.SubRemove) {
		return
	}
	for _, opt := range data.Options[0].Options {
		if opt.Name == command.OptionChannel && opt.Focused {
			handleChannelAutocomplete(b, s, i, opt.StringValue())
		}
	}
}

// handleChannelAutocomplete offers the guild's configured auction channels,
// including ones that no longer exist in the guild.
func handleChannelAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, typed string) {
	var choices []*discordgo.ApplicationCommandOptionChoice
	if b.Auth.IsAdmin(i.GuildID, utils.CallerFromInteraction(i)) {
		cfg, err := b.Registry.Get(i.GuildID)
		if err != nil {
			b.Logger.Warnw("error loading config for autocomplete", "guild", i.GuildID, "error", err)
		}
		choices = channelChoices(cfg.AuctionChannelIDs, func(id string) string {
			if ch, err := s.State.Channel(id); err == nil && ch.Name != "" {
				return "#" + ch.Name
			}
			return "unknown channel " + id
		}, typed)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		b.Logger.Warnw("error responding to autocomplete interaction", "error", err)
	}
}

func channelChoices(ids []string, name func(id string) string, typed string) []*discordgo.ApplicationCommandOptionChoice {
	typed = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(typed), "#"))
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(ids))
	for _, id := range ids {
		label := name(id)
		if typed != "" && !strings.Contains(strings.ToLower(label), typed) && !strings.HasPrefix(id, typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: label, Value: id})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}

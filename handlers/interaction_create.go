package handlers

import (
	"auction-bot/bot"

	"github.com/bwmarrin/discordgo"
)

// InteractionCreate handles slash commands, autocomplete and panel buttons.
func InteractionCreate(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			CommandDispatcher(b, s, i)
		case discordgo.InteractionApplicationCommandAutocomplete:
			HandleAutocomplete(b, s, i)
		case discordgo.InteractionMessageComponent:
			HandleComponent(b, s, i)
		}
	}
}

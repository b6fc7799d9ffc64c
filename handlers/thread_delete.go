package handlers

import (
	"auction-bot/bot"

	"github.com/bwmarrin/discordgo"
)

// ThreadDelete handles the THREAD_DELETE event.
func ThreadDelete(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadDelete) {
	return func(s *discordgo.Session, t *discordgo.ThreadDelete) {
		b.Logger.Debugw("thread delete event received", "thread", t.ID, "guild", t.GuildID)
		if err := b.Engine.Dispatcher.OnThreadDelete(b.Context(), t.GuildID, t.ID); err != nil {
			b.Logger.Warnw("thread delete not recorded", "guild", t.GuildID, "thread", t.ID, "error", err)
		}
	}
}

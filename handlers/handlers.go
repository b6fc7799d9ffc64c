package handlers

import (
	"auction-bot/bot"

	"github.com/bwmarrin/discordgo"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	b.Session.AddHandler(InteractionCreate(b))
	b.Session.AddHandler(MessageCreate(b))
	b.Session.AddHandler(MessageDelete(b))
	b.Session.AddHandler(ThreadDelete(b))
	b.Session.AddHandler(MessageReactionAdd(b))

	// The reaper only starts once the gateway is ready to take requests.
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Logger.Infow("logged in", "user", s.State.User.Username, "guilds", len(r.Guilds))
		b.StartReaper()
	})
}

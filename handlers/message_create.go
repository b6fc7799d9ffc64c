package handlers

import (
	"auction-bot/bot"

	"github.com/bwmarrin/discordgo"
)

// MessageCreate feeds every new message to the auction dispatcher.
func MessageCreate(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
			return
		}
		b.Engine.Dispatcher.OnMessageCreate(b.Context(), m.Message)
	}
}

// MessageDelete ends the auction or reply that was deleted by someone else.
func MessageDelete(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDelete) {
	return func(s *discordgo.Session, m *discordgo.MessageDelete) {
		if err := b.Engine.Dispatcher.OnMessageDelete(b.Context(), m.GuildID, m.ChannelID, m.ID); err != nil {
			b.Logger.Warnw("message delete not recorded", "guild", m.GuildID, "message", m.ID, "error", err)
		}
	}
}

// MessageReactionAdd records the bot's own timer reaction on tracked replies.
func MessageReactionAdd(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if s.State.User == nil {
			return
		}
		err := b.Engine.Dispatcher.OnReactionAdd(b.Context(), r.GuildID, r.MessageID, r.UserID, r.Emoji.Name, s.State.User.ID)
		if err != nil {
			b.Logger.Warnw("reaction not recorded", "guild", r.GuildID, "message", r.MessageID, "error", err)
		}
	}
}

package auction

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	// ThreadNamePrefix is shown to users on every auction thread and must not change.
	ThreadNamePrefix = "ClICK HERE TO OPEN AUCTION | "
	// AnchorTitle is the title of the embed users reply to.
	AnchorTitle = "💬 Place Your Bids Here!"
	// ConfirmationTitle is the title of the informational embed.
	ConfirmationTitle = "🔨 Auction Created"
	// FooterTag identifies embeds produced by the auction engine.
	FooterTag = "Auction System"
	// TimerEmoji marks tracked replies.
	TimerEmoji = "⏰"

	// DefaultRetention is how long posts and replies live.
	DefaultRetention = 10 * 24 * time.Hour

	maxThreadNameLen = 100

	colorAuction = 0xf1c40f
	colorAnchor  = 0x3498db
)

// ThreadName builds the canonical thread name for an auction by author.
// Discord caps thread names at 100 characters; the author part is trimmed
// so the prefix is always kept intact.
func ThreadName(author string) string {
	name := ThreadNamePrefix + author + "'s Auction"
	if utf8.RuneCountInString(name) <= maxThreadNameLen {
		return name
	}
	room := maxThreadNameLen - utf8.RuneCountInString(ThreadNamePrefix+"'s Auction") - 1
	runes := []rune(author)
	if room < 0 {
		room = 0
	}
	if len(runes) > room {
		runes = runes[:room]
	}
	return ThreadNamePrefix + string(runes) + "…'s Auction"
}

// DisplayName returns the name shown for a message author: guild nickname,
// then global display name, then username.
func DisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author == nil {
		return "Unknown"
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// MessageLink returns the jump URL of a message.
func MessageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

func retentionText(d time.Duration) string {
	days := int(d.Round(time.Hour).Hours()) / 24
	if days == 1 {
		return "**1 day**"
	}
	if days > 0 {
		return fmt.Sprintf("**%d days**", days)
	}
	return fmt.Sprintf("**%s**", d)
}

// ConfirmationEmbed describes the retention policy and links back to the post.
func ConfirmationEmbed(m *discordgo.Message, retention time.Duration) *discordgo.MessageEmbed {
	link := MessageLink(m.GuildID, m.ChannelID, m.ID)
	return &discordgo.MessageEmbed{
		Title: ConfirmationTitle,
		Description: fmt.Sprintf(
			"This auction and its thread will be automatically deleted in %s.\n"+
				"Every reply to the bidding message below is removed %s after it is posted.\n\n"+
				"[Jump to the original post](%s)",
			retentionText(retention), retentionText(retention), link),
		Color:  colorAuction,
		Footer: &discordgo.MessageEmbedFooter{Text: FooterTag},
	}
}

// AnchorEmbed is the message users reply to in order to bid.
func AnchorEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       AnchorTitle,
		Description: "Reply to this message to place your bid. Replies are tracked and cleaned up automatically.",
		Color:       colorAnchor,
		Footer:      &discordgo.MessageEmbedFooter{Text: FooterTag},
	}
}

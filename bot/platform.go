package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"auction-bot/auction"

	"github.com/bwmarrin/discordgo"
)

// threadArchiveMinutes is the auto-archive duration of auction threads.
const threadArchiveMinutes = 10080

// Platform adapts a discordgo session to auction.Platform. Every REST
// failure is mapped onto the auction sentinel errors.
type Platform struct {
	session *discordgo.Session
}

// NewPlatform wraps s.
func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{session: s}
}

var _ auction.Platform = (*Platform)(nil)

func (p *Platform) StartThread(ctx context.Context, channelID, messageID, name string) (*discordgo.Channel, error) {
	ch, err := p.session.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadArchiveMinutes,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("start thread", err)
	}
	return ch, nil
}

func (p *Platform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	msg, err := p.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("send embed", err)
	}
	return msg, nil
}

func (p *Platform) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return classify("add reaction", p.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)))
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return classify("delete message", p.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (p *Platform) DeleteThread(ctx context.Context, threadID string) error {
	_, err := p.session.ChannelDelete(threadID, discordgo.WithContext(ctx))
	return classify("delete thread", err)
}

func (p *Platform) SuppressEmbeds(ctx context.Context, channelID, messageID string) error {
	_, err := p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:      messageID,
		Channel: channelID,
		Flags:   discordgo.MessageFlagsSuppressEmbeds,
	}, discordgo.WithContext(ctx))
	return classify("suppress embeds", err)
}

// classify wraps err with the sentinel matching its HTTP status or Discord
// error code. Unknown failures are returned wrapped but unclassified, which
// the engine treats as transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%s: %w: %v", op, auction.ErrRateLimited, err)
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%s: %w: %v", op, auction.ErrNotFound, err)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%s: %w: %v", op, auction.ErrForbidden, err)
		}
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", op, auction.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", op, auction.ErrForbidden, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %v", op, auction.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

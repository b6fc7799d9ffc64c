package auction

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Platform is what the engine needs from the chat platform. Implementations
// must report a missing target as ErrNotFound, a permission failure as
// ErrForbidden and throttling as ErrRateLimited (wrapped is fine); any other
// error is treated as transient.
type Platform interface {
	// StartThread opens a public thread on messageID in channelID.
	StartThread(ctx context.Context, channelID, messageID, name string) (*discordgo.Channel, error)
	// SendEmbed posts an embed into channelID (a thread is a channel).
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	DeleteThread(ctx context.Context, threadID string) error
	SuppressEmbeds(ctx context.Context, channelID, messageID string) error
}

var (
	// ErrNotFound means the message or thread no longer exists.
	ErrNotFound = errors.New("target not found")
	// ErrForbidden means the bot lacks permission for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited means the platform throttled the request.
	ErrRateLimited = errors.New("rate limited")
)

// IsNotFound reports whether err means the target is already gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden reports whether err is a permission failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// isFinal reports whether an outcome lets the state machine advance: success,
// already gone, or a permission failure we can never get past.
func isFinal(err error) bool {
	return err == nil || IsNotFound(err) || IsForbidden(err)
}

// Clock returns the current time.
type Clock func() time.Time

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

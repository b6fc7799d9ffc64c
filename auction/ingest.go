package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-bot/database"
	"auction-bot/metrics"
	"auction-bot/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Action is what the pipeline does with an incoming message.
type Action int

const (
	ActionDrop Action = iota
	ActionPromote
	ActionTrackReply
)

func (a Action) String() string {
	switch a {
	case ActionPromote:
		return "promote"
	case ActionTrackReply:
		return "track_reply"
	default:
		return "drop"
	}
}

// IsUserMessage reports whether m is an ordinary user post or reply rather
// than a bot message or a system event (pins, joins, thread notices...).
func IsUserMessage(m *discordgo.Message) bool {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return false
	}
	return m.Type == discordgo.MessageTypeDefault || m.Type == discordgo.MessageTypeReply
}

// Classify decides how an incoming message is handled. Auction channels win
// over replies; anything that references another message outside an auction
// channel is a reply candidate, confirmed later against the anchor table.
func Classify(m *discordgo.Message, cfg models.GuildConfig) Action {
	if !IsUserMessage(m) {
		return ActionDrop
	}
	if cfg.IsAuctionChannel(m.ChannelID) {
		return ActionPromote
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		return ActionTrackReply
	}
	return ActionDrop
}

// Ingestor promotes posts in auction channels to threaded auctions.
type Ingestor struct {
	registry  *database.Registry
	platform  Platform
	logger    *zap.SugaredLogger
	now       Clock
	retention time.Duration
}

// IngestError reports the promotion step that failed.
type IngestError struct {
	Step string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("auction promotion failed at %s: %v", e.Step, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Promote opens the auction thread, posts the confirmation and anchor embeds
// and records the auction. The steps run strictly in order; the record is
// only written once the anchor exists. When anything after the thread fails
// the thread is removed again so no orphan is left behind.
func (in *Ingestor) Promote(ctx context.Context, m *discordgo.Message, cfg models.GuildConfig) (*models.AuctionRecord, error) {
	thread, err := in.platform.StartThread(ctx, m.ChannelID, m.ID, ThreadName(DisplayName(m)))
	if err != nil {
		return nil, in.fail("thread", m, err)
	}
	if thread == nil || thread.ID == "" || thread.ID == m.ChannelID {
		return nil, in.fail("thread", m, errors.New("platform returned an invalid thread"))
	}

	if cfg.SendConfirmation {
		if _, err := in.platform.SendEmbed(ctx, thread.ID, ConfirmationEmbed(m, in.retention)); err != nil {
			in.discardThread(ctx, thread.ID)
			return nil, in.fail("confirmation", m, err)
		}
	}

	anchor, err := in.platform.SendEmbed(ctx, thread.ID, AnchorEmbed())
	if err != nil {
		in.discardThread(ctx, thread.ID)
		return nil, in.fail("anchor", m, err)
	}

	created := in.now().UTC()
	rec := models.AuctionRecord{
		MessageID:            m.ID,
		ChannelID:            m.ChannelID,
		GuildID:              m.GuildID,
		AuthorID:             m.Author.ID,
		ThreadID:             thread.ID,
		AnchorMessageID:      anchor.ID,
		CreatedAt:            created,
		DeletionTime:         created.Add(in.retention),
		DeleteThreadOnExpire: cfg.DeleteThreadOnExpire,
	}

	err = in.registry.Store().Tx(ctx, m.GuildID, func(tx *sql.Tx) error {
		return database.InsertAuction(ctx, tx, rec)
	})
	if err != nil {
		in.discardThread(ctx, thread.ID)
		return nil, in.fail("record", m, err)
	}

	metrics.RecordAuctionCreated()
	in.logger.Infow("auction created",
		"guild", rec.GuildID, "channel", rec.ChannelID, "message", rec.MessageID,
		"thread", rec.ThreadID, "anchor", rec.AnchorMessageID, "expires", rec.DeletionTime)
	return &rec, nil
}

func (in *Ingestor) fail(step string, m *discordgo.Message, err error) error {
	metrics.RecordIngestFailure(step)
	in.logger.Warnw("auction promotion aborted",
		"step", step, "guild", m.GuildID, "channel", m.ChannelID, "message", m.ID, "error", err)
	return &IngestError{Step: step, Err: err}
}

func (in *Ingestor) discardThread(ctx context.Context, threadID string) {
	if err := in.platform.DeleteThread(ctx, threadID); err != nil && !IsNotFound(err) {
		in.logger.Warnw("failed to remove thread of aborted auction", "thread", threadID, "error", err)
	}
}

// SuppressEmbeds hides link previews on m. Failures are logged and ignored.
func (in *Ingestor) SuppressEmbeds(ctx context.Context, m *discordgo.Message) {
	if err := in.platform.SuppressEmbeds(ctx, m.ChannelID, m.ID); err != nil {
		in.logger.Debugw("could not suppress embeds", "channel", m.ChannelID, "message", m.ID, "error", err)
	}
}

package auction

import (
	"context"
	"database/sql"
	"time"

	"auction-bot/database"
	"auction-bot/metrics"
	"auction-bot/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ReplyTracker registers replies to auction anchors, each with its own
// expiry timer.
type ReplyTracker struct {
	registry  *database.Registry
	platform  Platform
	logger    *zap.SugaredLogger
	now       Clock
	retention time.Duration
}

// Track records m if it replies to the anchor of a live auction whose thread
// is m's channel. It returns nil when m is not a tracked reply. The timer
// reaction is cosmetic: a failure to add it is logged and the reply stays
// tracked.
func (rt *ReplyTracker) Track(ctx context.Context, m *discordgo.Message) (*models.ReplyRecord, error) {
	ref := m.MessageReference
	if ref == nil || ref.MessageID == "" || m.Author == nil {
		return nil, nil
	}
	if ref.ChannelID != "" && ref.ChannelID != m.ChannelID {
		return nil, nil
	}
	store := rt.registry.Store()
	if !store.HasGuild(m.GuildID) {
		return nil, nil
	}

	var rec *models.ReplyRecord
	err := store.Tx(ctx, m.GuildID, func(tx *sql.Tx) error {
		parent, err := database.FindLiveAuctionByAnchor(ctx, tx, m.ChannelID, ref.MessageID)
		if err != nil || parent == nil {
			return err
		}
		candidate := models.ReplyRecord{
			ReplyID:          m.ID,
			AuctionMessageID: parent.MessageID,
			ThreadID:         parent.ThreadID,
			AuthorID:         m.Author.ID,
			DeletionTime:     rt.now().UTC().Add(rt.retention),
		}
		inserted, err := database.InsertReply(ctx, tx, candidate)
		if err != nil || !inserted {
			return err
		}
		rec = &candidate
		return nil
	})
	if err != nil {
		rt.logger.Errorw("failed to record reply", "guild", m.GuildID, "thread", m.ChannelID, "reply", m.ID, "error", err)
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	metrics.RecordReplyTracked()
	rt.logger.Debugw("reply tracked", "guild", m.GuildID, "thread", rec.ThreadID, "reply", rec.ReplyID, "expires", rec.DeletionTime)

	if err := rt.platform.AddReaction(ctx, m.ChannelID, m.ID, TimerEmoji); err != nil {
		rt.logger.Infow("timer reaction not added", "guild", m.GuildID, "reply", m.ID, "error", err)
		return rec, nil
	}
	if err := rt.MarkReaction(ctx, m.GuildID, m.ID); err != nil {
		rt.logger.Warnw("failed to record timer reaction", "guild", m.GuildID, "reply", m.ID, "error", err)
		return rec, nil
	}
	rec.ReactionAdded = true
	return rec, nil
}

// MarkReaction sets reaction_added on a reply in guildID.
func (rt *ReplyTracker) MarkReaction(ctx context.Context, guildID, replyID string) error {
	return rt.registry.Store().Tx(ctx, guildID, func(tx *sql.Tx) error {
		_, err := database.SetReactionAdded(ctx, tx, replyID)
		return err
	})
}

package auction

import (
	"context"
	"database/sql"
	"fmt"

	"auction-bot/database"
	"auction-bot/models"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

// Dispatcher routes chat events to the ingestion pipeline and the reply
// tracker, cascades external deletions, and finds the guild that owns a
// bare reply id.
type Dispatcher struct {
	registry *database.Registry
	platform Platform
	ingestor *Ingestor
	replies  *ReplyTracker
	logger   *zap.SugaredLogger

	suppressEverywhere bool

	seen       *ttlcache.Cache[string, struct{}] // message ids handled recently
	replyIndex *lru.Cache[string, string]        // reply id -> guild id
}

func newDispatcher(opts Options, ingestor *Ingestor, replies *ReplyTracker) (*Dispatcher, error) {
	index, err := lru.New[string, string](opts.ReplyIndexSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reply index: %w", err)
	}
	seen := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](opts.DedupWindow),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go seen.Start()

	return &Dispatcher{
		registry:           opts.Registry,
		platform:           opts.Platform,
		ingestor:           ingestor,
		replies:            replies,
		logger:             opts.Logger.Named("dispatch"),
		suppressEverywhere: opts.SuppressEmbedsEverywhere,
		seen:               seen,
		replyIndex:         index,
	}, nil
}

func (d *Dispatcher) close() {
	d.seen.Stop()
}

// OnMessageCreate handles a new message. It returns the action taken.
func (d *Dispatcher) OnMessageCreate(ctx context.Context, m *discordgo.Message) Action {
	if !IsUserMessage(m) {
		return ActionDrop
	}
	if _, dup := d.seen.GetOrSet(m.ID, struct{}{}); dup {
		d.logger.Debugw("skipping replayed message event", "message", m.ID)
		return ActionDrop
	}

	cfg, err := d.registry.Get(m.GuildID)
	if err != nil {
		d.logger.Warnw("no usable config for guild", "guild", m.GuildID, "error", err)
		return ActionDrop
	}

	action := Classify(m, cfg)
	if len(m.Embeds) > 0 && (action == ActionPromote || d.suppressEverywhere) {
		d.ingestor.SuppressEmbeds(ctx, m)
	}

	switch action {
	case ActionPromote:
		if _, err := d.ingestor.Promote(ctx, m, cfg); err != nil {
			return ActionDrop
		}
	case ActionTrackReply:
		rec, err := d.replies.Track(ctx, m)
		if err != nil || rec == nil {
			return ActionDrop
		}
		d.replyIndex.Add(rec.ReplyID, m.GuildID)
	}
	return action
}

// OnMessageDelete handles a raw message delete. guildID may be empty, in
// which case every guild is searched. Deleting an auction post removes its
// thread and ends the auction; deleting a tracked reply ends the reply.
func (d *Dispatcher) OnMessageDelete(ctx context.Context, guildID, channelID, messageID string) error {
	guilds, err := d.candidateGuilds(guildID)
	if err != nil {
		return err
	}
	for _, gid := range guilds {
		handled, err := d.deleteInGuild(ctx, gid, messageID)
		if err != nil {
			d.logger.Errorw("failed to handle message delete", "guild", gid, "channel", channelID, "message", messageID, "error", err)
			return err
		}
		if handled {
			return nil
		}
	}
	return nil
}

func (d *Dispatcher) deleteInGuild(ctx context.Context, guildID, messageID string) (bool, error) {
	store := d.registry.Store()

	var (
		auction *models.AuctionRecord
		reply   *models.ReplyRecord
	)
	err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
		var err error
		if auction, err = database.GetAuction(ctx, tx, messageID); err != nil || auction != nil {
			return err
		}
		reply, err = database.GetReply(ctx, tx, messageID)
		return err
	})
	if err != nil {
		return false, err
	}

	switch {
	case auction != nil:
		if auction.IsDeleted {
			return true, nil
		}
		threadGone := false
		if auction.ThreadID != "" {
			err := d.platform.DeleteThread(ctx, auction.ThreadID)
			recordDeletion("thread", err)
			switch {
			case err == nil || IsNotFound(err):
				threadGone = true
			case IsForbidden(err):
				d.logger.Warnw("not allowed to delete thread of removed auction post", "thread", auction.ThreadID, "error", err)
			default:
				// The record stays live; the reaper retries the thread at
				// deletion time and finds the post already gone.
				d.logger.Warnw("thread of removed auction post left for the reaper", "thread", auction.ThreadID, "error", err)
				return true, nil
			}
		}
		err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
			if _, err := database.MarkAuctionDeleted(ctx, tx, auction.MessageID); err != nil {
				return err
			}
			if threadGone {
				_, err := database.MarkThreadRepliesDeleted(ctx, tx, auction.ThreadID)
				return err
			}
			return nil
		})
		if err != nil {
			return true, err
		}
		d.logger.Infow("auction post removed externally", "guild", guildID, "message", auction.MessageID, "thread", auction.ThreadID)
		return true, nil

	case reply != nil:
		if reply.IsDeleted {
			return true, nil
		}
		err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
			_, err := database.MarkReplyDeleted(ctx, tx, reply.ReplyID)
			return err
		})
		d.replyIndex.Remove(reply.ReplyID)
		return true, err
	}
	return false, nil
}

// OnThreadDelete ends every tracked reply in a deleted auction thread. The
// auction itself stays live so its post is still reaped on schedule.
func (d *Dispatcher) OnThreadDelete(ctx context.Context, guildID, threadID string) error {
	store := d.registry.Store()
	if !store.HasGuild(guildID) {
		return nil
	}
	var ended int64
	err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
		auction, err := database.FindAuctionByThread(ctx, tx, threadID)
		if err != nil || auction == nil {
			return err
		}
		ended, err = database.MarkThreadRepliesDeleted(ctx, tx, threadID)
		return err
	})
	if err != nil {
		d.logger.Errorw("failed to handle thread delete", "guild", guildID, "thread", threadID, "error", err)
		return err
	}
	if ended > 0 {
		d.logger.Infow("auction thread deleted externally", "guild", guildID, "thread", threadID, "replies", ended)
	}
	return nil
}

// OnReactionAdd records the bot's own timer reaction on a tracked reply.
// guildID may be empty.
func (d *Dispatcher) OnReactionAdd(ctx context.Context, guildID, messageID, userID, emoji, selfID string) error {
	if selfID == "" || userID != selfID || emoji != TimerEmoji {
		return nil
	}
	if guildID != "" && d.registry.Store().HasGuild(guildID) {
		return d.replies.MarkReaction(ctx, guildID, messageID)
	}
	return d.MarkReactionAdded(ctx, messageID)
}

// MarkReactionAdded sets reaction_added on a reply known only by id.
func (d *Dispatcher) MarkReactionAdded(ctx context.Context, replyID string) error {
	guildID, rec, err := d.LocateReply(ctx, replyID)
	if err != nil || rec == nil {
		return err
	}
	return d.replies.MarkReaction(ctx, guildID, replyID)
}

// LocateReply finds the guild that owns replyID. The index is consulted
// first; on a miss every guild directory is scanned in turn.
func (d *Dispatcher) LocateReply(ctx context.Context, replyID string) (string, *models.ReplyRecord, error) {
	if guildID, ok := d.replyIndex.Get(replyID); ok {
		rec, err := d.replyIn(ctx, guildID, replyID)
		if err != nil {
			return "", nil, err
		}
		if rec != nil {
			return guildID, rec, nil
		}
		d.replyIndex.Remove(replyID)
	}

	guilds, err := d.registry.Store().Guilds()
	if err != nil {
		return "", nil, err
	}
	for _, guildID := range guilds {
		rec, err := d.replyIn(ctx, guildID, replyID)
		if err != nil {
			d.logger.Warnw("reply lookup failed in guild", "guild", guildID, "reply", replyID, "error", err)
			continue
		}
		if rec != nil {
			d.replyIndex.Add(replyID, guildID)
			return guildID, rec, nil
		}
	}
	return "", nil, nil
}

func (d *Dispatcher) replyIn(ctx context.Context, guildID, replyID string) (*models.ReplyRecord, error) {
	store := d.registry.Store()
	if !store.HasGuild(guildID) {
		return nil, nil
	}
	var rec *models.ReplyRecord
	err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
		var err error
		rec, err = database.GetReply(ctx, tx, replyID)
		return err
	})
	return rec, err
}

// candidateGuilds returns the guilds a delete event may concern: the known
// guild when it has data, otherwise every guild on disk.
func (d *Dispatcher) candidateGuilds(guildID string) ([]string, error) {
	store := d.registry.Store()
	if guildID != "" {
		if store.HasGuild(guildID) {
			return []string{guildID}, nil
		}
		return nil, nil
	}
	all, err := store.Guilds()
	if err != nil {
		return nil, err
	}
	guilds := all[:0]
	for _, gid := range all {
		if store.HasGuild(gid) {
			guilds = append(guilds, gid)
		}
	}
	return guilds, nil
}

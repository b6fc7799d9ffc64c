package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"auction-bot/database"
	"auction-bot/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Caller identifies who invoked a control operation.
type Caller struct {
	UserID      string
	RoleIDs     []string
	Permissions int64
}

// Authorizer decides whether a caller may administer auctions in a guild.
type Authorizer interface {
	IsAdmin(guildID string, caller Caller) bool
}

// Reason explains why a control operation failed.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonForbidden      Reason = "forbidden"
	ReasonNoGuild        Reason = "no_guild"
	ReasonInvalidChannel Reason = "invalid_channel"
	ReasonInternal       Reason = "internal"
)

// Result is the structured outcome of a control operation. Presenting it to
// users is up to the caller.
type Result struct {
	OK      bool
	Reason  Reason
	Message string
	// Changed is false when an idempotent operation found nothing to do.
	Changed bool
	Config  models.GuildConfig
	Status  *models.StatusReport
	Sweep   *models.SweepResult
}

func failed(reason Reason, format string, args ...any) Result {
	return Result{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ChannelRef is the channel argument of add_channel.
type ChannelRef struct {
	ID      string
	GuildID string
	Type    discordgo.ChannelType
}

// AuctionChannelTypes are the channel kinds a thread can be opened from.
var AuctionChannelTypes = []discordgo.ChannelType{
	discordgo.ChannelTypeGuildText,
	discordgo.ChannelTypeGuildNews,
}

// Control exposes the admin operations of the engine. Every entry point
// checks authorization first and changes nothing on failure.
type Control struct {
	registry *database.Registry
	reaper   *Reaper
	auth     Authorizer
	logger   *zap.SugaredLogger
}

func (c *Control) check(guildID string, caller Caller) (Result, bool) {
	if guildID == "" {
		return failed(ReasonNoGuild, "this command can only be used inside a server"), false
	}
	if c.auth == nil || !c.auth.IsAdmin(guildID, caller) {
		return failed(ReasonForbidden, "you do not have permission to manage auctions"), false
	}
	return Result{}, true
}

func (c *Control) update(guildID string, fn func(cfg *models.GuildConfig) (bool, error)) (models.GuildConfig, bool, error) {
	changed := false
	cfg, err := c.registry.Update(guildID, func(cfg *models.GuildConfig) error {
		var err error
		changed, err = fn(cfg)
		return err
	})
	return cfg, changed, err
}

// AddChannel enables a channel for auctions. Adding a channel twice is a
// no-op.
func (c *Control) AddChannel(ctx context.Context, guildID string, caller Caller, ch ChannelRef) Result {
	if res, ok := c.check(guildID, caller); !ok {
		return res
	}
	if ch.ID == "" || !slices.Contains(AuctionChannelTypes, ch.Type) {
		return failed(ReasonInvalidChannel, "auctions can only run in text or announcement channels")
	}
	if ch.GuildID != "" && ch.GuildID != guildID {
		return failed(ReasonInvalidChannel, "that channel belongs to another server")
	}

	cfg, changed, err := c.update(guildID, func(cfg *models.GuildConfig) (bool, error) {
		if cfg.IsAuctionChannel(ch.ID) {
			return false, nil
		}
		cfg.AuctionChannelIDs = append(cfg.AuctionChannelIDs, ch.ID)
		return true, nil
	})
	if err != nil {
		c.logger.Errorw("add channel failed", "guild", guildID, "channel", ch.ID, "error", err)
		return failed(ReasonInternal, "could not save the configuration")
	}
	if changed {
		c.logger.Infow("auction channel added", "guild", guildID, "channel", ch.ID, "by", caller.UserID)
	}
	return Result{OK: true, Changed: changed, Config: cfg, Message: channelMessage(ch.ID, changed, "is now an auction channel", "is already an auction channel")}
}

// RemoveChannel disables a channel. Removing an unknown channel is a no-op.
// Existing auctions from the channel keep their timers.
func (c *Control) RemoveChannel(ctx context.Context, guildID string, caller Caller, channelID string) Result {
	if res, ok := c.check(guildID, caller); !ok {
		return res
	}
	if channelID == "" {
		return failed(ReasonInvalidChannel, "no channel given")
	}

	cfg, changed, err := c.update(guildID, func(cfg *models.GuildConfig) (bool, error) {
		idx := slices.Index(cfg.AuctionChannelIDs, channelID)
		if idx < 0 {
			return false, nil
		}
		cfg.AuctionChannelIDs = slices.Delete(cfg.AuctionChannelIDs, idx, idx+1)
		return true, nil
	})
	if err != nil {
		c.logger.Errorw("remove channel failed", "guild", guildID, "channel", channelID, "error", err)
		return failed(ReasonInternal, "could not save the configuration")
	}
	if changed {
		c.logger.Infow("auction channel removed", "guild", guildID, "channel", channelID, "by", caller.UserID)
	}
	return Result{OK: true, Changed: changed, Config: cfg, Message: channelMessage(channelID, changed, "is no longer an auction channel", "was not an auction channel")}
}

func channelMessage(channelID string, changed bool, done, noop string) string {
	if changed {
		return fmt.Sprintf("<#%s> %s", channelID, done)
	}
	return fmt.Sprintf("<#%s> %s", channelID, noop)
}

// ToggleThreadDeletion flips delete_thread_on_expire for the guild. The new
// value applies retroactively: every live auction row is rewritten to match.
func (c *Control) ToggleThreadDeletion(ctx context.Context, guildID string, caller Caller) Result {
	if res, ok := c.check(guildID, caller); !ok {
		return res
	}

	cfg, _, err := c.update(guildID, func(cfg *models.GuildConfig) (bool, error) {
		cfg.DeleteThreadOnExpire = !cfg.DeleteThreadOnExpire
		return true, nil
	})
	if err != nil {
		c.logger.Errorw("toggle thread deletion failed", "guild", guildID, "error", err)
		return failed(ReasonInternal, "could not save the configuration")
	}

	var rows int64
	err = c.registry.Store().Tx(ctx, guildID, func(tx *sql.Tx) error {
		var err error
		rows, err = database.SetThreadDeletionForLive(ctx, tx, cfg.DeleteThreadOnExpire)
		return err
	})
	if err != nil {
		// The guild config is authoritative for the reaper; stale rows only
		// affect the per-record snapshot.
		c.logger.Warnw("failed to rewrite live auctions", "guild", guildID, "error", err)
	}
	c.logger.Infow("thread deletion toggled", "guild", guildID, "enabled", cfg.DeleteThreadOnExpire, "rows", rows, "by", caller.UserID)

	state := "disabled"
	if cfg.DeleteThreadOnExpire {
		state = "enabled"
	}
	return Result{OK: true, Changed: true, Config: cfg, Message: "Thread deletion on expiry is now " + state}
}

// ToggleConfirmation flips send_confirmation for the guild.
func (c *Control) ToggleConfirmation(ctx context.Context, guildID string, caller Caller) Result {
	if res, ok := c.check(guildID, caller); !ok {
		return res
	}

	cfg, _, err := c.update(guildID, func(cfg *models.GuildConfig) (bool, error) {
		cfg.SendConfirmation = !cfg.SendConfirmation
		return true, nil
	})
	if err != nil {
		c.logger.Errorw("toggle confirmation failed", "guild", guildID, "error", err)
		return failed(ReasonInternal, "could not save the configuration")
	}
	c.logger.Infow("confirmation toggled", "guild", guildID, "enabled", cfg.SendConfirmation, "by", caller.UserID)

	state := "disabled"
	if cfg.SendConfirmation {
		state = "enabled"
	}
	return Result{OK: true, Changed: true, Config: cfg, Message: "Confirmation messages are now " + state}
}

// Status reports the channel set, live record counts and both flags.
func (c *Control) Status(ctx context.Context, guildID string, caller Caller) Result {
	if res, ok := c.check(guildID, caller); !ok {
		return res
	}

	cfg, err := c.registry.Get(guildID)
	if err != nil {
		return failed(ReasonInternal, "could not load the configuration")
	}
	report := &models.StatusReport{
		GuildID:              guildID,
		AuctionChannelIDs:    cfg.AuctionChannelIDs,
		SendConfirmation:     cfg.SendConfirmation,
		DeleteThreadOnExpire: cfg.DeleteThreadOnExpire,
	}

	store := c.registry.Store()
	if store.HasGuild(guildID) {
		err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
			var err error
			report.ActiveAuctions, report.ActiveReplies, err = database.CountLive(ctx, tx)
			return err
		})
		if err != nil {
			c.logger.Errorw("status query failed", "guild", guildID, "error", err)
			return failed(ReasonInternal, "could not read the auction database")
		}
	}
	return Result{OK: true, Config: cfg, Status: report}
}

// ReapNow runs one reaper pass for the guild and waits for it.
func (c *Control) ReapNow(ctx context.Context, guildID string, caller Caller) Result {
	if res, ok := c.check(guildID, caller); !ok {
		return res
	}
	if !c.registry.Store().HasGuild(guildID) {
		return Result{OK: true, Sweep: &models.SweepResult{GuildID: guildID}, Message: "Nothing to clean up"}
	}

	res, err := c.reaper.ReapGuild(ctx, guildID)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return Result{Reason: ReasonInternal, Sweep: &res, Message: "cleanup was interrupted"}
	}
	msg := fmt.Sprintf("Cleanup finished: %d replies and %d auctions removed", res.RepliesReaped, res.AuctionsReaped)
	if err != nil {
		c.logger.Warnw("manual cleanup finished with errors", "guild", guildID, "error", err)
		msg += fmt.Sprintf(", %d will be retried", res.Retried)
	}
	return Result{OK: true, Sweep: &res, Message: msg}
}

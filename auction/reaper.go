package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-bot/database"
	"auction-bot/metrics"
	"auction-bot/models"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TickSource triggers reaper passes. The production source is cron driven;
// tests fire ticks by hand.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// ManualTicker is a TickSource fired by calling Tick.
type ManualTicker struct {
	mu      sync.Mutex // held while sending so Stop never closes ch mid-send
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

// NewManualTicker creates a ticker with a small buffer.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		ch:      make(chan time.Time, 1),
		stopped: make(chan struct{}),
	}
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time { return t.ch }

// Tick delivers one tick, blocking until the reaper accepts it. After Stop
// it does nothing.
func (t *ManualTicker) Tick(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.stopped:
		return
	default:
	}
	select {
	case t.ch <- at:
	case <-t.stopped:
	}
}

// Stop closes the tick channel.
func (t *ManualTicker) Stop() {
	t.once.Do(func() {
		close(t.stopped)
		t.mu.Lock()
		close(t.ch)
		t.mu.Unlock()
	})
}

// Reaper deletes expired replies, posts and threads. It is idempotent: a
// record stays selectable until its deletion reaches a final outcome, and a
// record marked deleted is never selected again.
type Reaper struct {
	registry      *database.Registry
	platform      Platform
	logger        *zap.SugaredLogger
	now           Clock
	sleep         SleepFunc
	replyPacing   time.Duration
	auctionPacing time.Duration

	passMu sync.Mutex // one pass at a time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// OnSweep, when set, is called after every scheduled pass.
	OnSweep func(models.SweepResult, error)
}

// Start runs a pass on every tick from ticks until Stop is called.
func (r *Reaper) Start(ctx context.Context, ticks TickSource) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		defer ticks.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ticks.C():
				if !ok {
					return
				}
				res, err := r.Sweep(ctx)
				if r.OnSweep != nil {
					r.OnSweep(res, err)
				}
			}
		}
	}()
	r.logger.Info("reaper started")
}

// Stop cancels the periodic task and waits up to grace for an in-flight
// pass. In-flight deletions that are cut off are retried on the next start.
func (r *Reaper) Stop(grace time.Duration) error {
	r.runMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		r.logger.Info("reaper stopped")
		return nil
	case <-timer.C:
		r.logger.Warnw("reaper did not stop within grace period", "grace", grace)
		return fmt.Errorf("reaper did not stop within %s", grace)
	}
}

// Sweep runs one pass over every guild directory on disk, one guild after
// another. Errors in one guild do not stop the others.
func (r *Reaper) Sweep(ctx context.Context) (models.SweepResult, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run", runID)

	var total models.SweepResult
	guilds, err := r.registry.Store().Guilds()
	if err != nil {
		logger.Errorw("failed to list guilds", "error", err)
		return total, err
	}

	var errs error
	for _, guildID := range guilds {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		res, err := r.reapGuild(ctx, guildID, logger)
		total.Add(res)
		if err != nil {
			metrics.RecordSweepError()
			errs = multierr.Append(errs, fmt.Errorf("guild %s: %w", guildID, err))
		}
	}

	metrics.RecordSweepDuration(time.Since(start).Seconds())
	logger.Infow("reaper pass finished",
		"guilds", len(guilds), "replies", total.RepliesReaped, "auctions", total.AuctionsReaped,
		"threads", total.ThreadsDeleted, "retry", total.Retried, "skipped", total.Skipped, "elapsed", time.Since(start))
	return total, errs
}

// ReapGuild runs one pass for a single guild.
func (r *Reaper) ReapGuild(ctx context.Context, guildID string) (models.SweepResult, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()
	return r.reapGuild(ctx, guildID, r.logger.With("run", uuid.NewString()))
}

func (r *Reaper) reapGuild(ctx context.Context, guildID string, logger *zap.SugaredLogger) (models.SweepResult, error) {
	res := models.SweepResult{GuildID: guildID}
	logger = logger.With("guild", guildID)

	cfg, err := r.registry.Get(guildID)
	if err != nil {
		return res, err
	}

	replyErr := r.reapReplies(ctx, guildID, &res, logger)
	if errors.Is(replyErr, context.Canceled) || errors.Is(replyErr, context.DeadlineExceeded) {
		return res, replyErr
	}
	auctionErr := r.reapAuctions(ctx, guildID, cfg.DeleteThreadOnExpire, &res, logger)
	return res, multierr.Combine(replyErr, auctionErr)
}

func (r *Reaper) reapReplies(ctx context.Context, guildID string, res *models.SweepResult, logger *zap.SugaredLogger) error {
	store := r.registry.Store()
	now := r.now()

	var (
		due     []models.ReplyRecord
		skipped []error
	)
	err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
		var err error
		due, skipped, err = database.DueReplies(ctx, tx, now)
		return err
	})
	if err != nil {
		logger.Errorw("failed to load due replies", "error", err)
		return err
	}

	var errs error
	for _, rowErr := range skipped {
		res.Skipped++
		logger.Errorw("skipping unreadable replie row", "error", rowErr)
		errs = multierr.Append(errs, rowErr)
	}
	for i, reply := range due {
		if i > 0 {
			if err := r.sleep(ctx, r.replyPacing); err != nil {
				return multierr.Append(errs, err)
			}
		}

		delErr := r.platform.DeleteMessage(ctx, reply.ThreadID, reply.ReplyID)
		recordDeletion("reply", delErr)
		if !isFinal(delErr) {
			res.Retried++
			logger.Warnw("reply deletion will be retried", "reply", reply.ReplyID, "thread", reply.ThreadID, "error", delErr)
			errs = multierr.Append(errs, fmt.Errorf("reply %s: %w", reply.ReplyID, delErr))
			continue
		}
		if delErr == nil {
			res.MessagesDeleted++
		} else {
			logger.Infow("reply already gone or not deletable", "reply", reply.ReplyID, "error", delErr)
		}

		err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
			_, err := database.MarkReplyDeleted(ctx, tx, reply.ReplyID)
			return err
		})
		if err != nil {
			logger.Errorw("failed to mark reply deleted", "reply", reply.ReplyID, "error", err)
			errs = multierr.Append(errs, err)
			continue
		}
		res.RepliesReaped++
	}
	return errs
}

func (r *Reaper) reapAuctions(ctx context.Context, guildID string, deleteThreads bool, res *models.SweepResult, logger *zap.SugaredLogger) error {
	store := r.registry.Store()
	now := r.now()

	var (
		due     []models.AuctionRecord
		skipped []error
	)
	err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
		var err error
		due, skipped, err = database.DueAuctions(ctx, tx, now)
		return err
	})
	if err != nil {
		logger.Errorw("failed to load due auctions", "error", err)
		return err
	}

	var errs error
	for _, rowErr := range skipped {
		res.Skipped++
		logger.Errorw("skipping unreadable auction row", "error", rowErr)
		errs = multierr.Append(errs, rowErr)
	}
	for i, rec := range due {
		if i > 0 {
			if err := r.sleep(ctx, r.auctionPacing); err != nil {
				return multierr.Append(errs, err)
			}
		}

		var retryErr error
		threadGone := false
		if deleteThreads && rec.ThreadID != "" {
			thrErr := r.platform.DeleteThread(ctx, rec.ThreadID)
			recordDeletion("thread", thrErr)
			switch {
			case thrErr == nil:
				res.ThreadsDeleted++
				threadGone = true
			case IsNotFound(thrErr):
				threadGone = true
			case IsForbidden(thrErr):
				logger.Warnw("not allowed to delete auction thread", "thread", rec.ThreadID, "error", thrErr)
			default:
				retryErr = multierr.Append(retryErr, thrErr)
				logger.Warnw("thread deletion will be retried", "thread", rec.ThreadID, "error", thrErr)
			}
		}

		postErr := r.platform.DeleteMessage(ctx, rec.ChannelID, rec.MessageID)
		recordDeletion("post", postErr)
		switch {
		case postErr == nil:
			res.MessagesDeleted++
		case isFinal(postErr):
			logger.Infow("auction post already gone or not deletable", "message", rec.MessageID, "error", postErr)
		default:
			retryErr = multierr.Append(retryErr, postErr)
			logger.Warnw("post deletion will be retried", "message", rec.MessageID, "error", postErr)
		}

		if retryErr != nil {
			res.Retried++
			errs = multierr.Append(errs, fmt.Errorf("auction %s: %w", rec.MessageID, retryErr))
			continue
		}

		err := store.Tx(ctx, guildID, func(tx *sql.Tx) error {
			if _, err := database.MarkAuctionDeleted(ctx, tx, rec.MessageID); err != nil {
				return err
			}
			if threadGone {
				_, err := database.MarkThreadRepliesDeleted(ctx, tx, rec.ThreadID)
				return err
			}
			return nil
		})
		if err != nil {
			logger.Errorw("failed to mark auction deleted", "message", rec.MessageID, "error", err)
			errs = multierr.Append(errs, err)
			continue
		}
		res.AuctionsReaped++
		logger.Infow("auction expired", "message", rec.MessageID, "thread", rec.ThreadID, "thread_deleted", threadGone)
	}
	return errs
}

func recordDeletion(kind string, err error) {
	switch {
	case err == nil:
		metrics.RecordDeletion(kind, "deleted")
	case IsNotFound(err):
		metrics.RecordDeletion(kind, "not_found")
	case IsForbidden(err):
		metrics.RecordDeletion(kind, "forbidden")
	default:
		metrics.RecordDeletion(kind, "error")
	}
}

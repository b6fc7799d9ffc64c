package models

import "time"

// AuctionRecord tracks one auction post and the thread opened on it.
// It is keyed by the id of the original post.
type AuctionRecord struct {
	MessageID            string    `db:"message_id"`
	ChannelID            string    `db:"channel_id"`
	GuildID              string    `db:"guild_id"`
	AuthorID             string    `db:"author_id"`
	ThreadID             string    `db:"thread_id"`
	AnchorMessageID      string    `db:"anchor_message_id"`
	CreatedAt            time.Time `db:"created_at"`
	DeletionTime         time.Time `db:"deletion_time"`
	IsDeleted            bool      `db:"is_deleted"`
	DeleteThreadOnExpire bool      `db:"delete_thread_on_expire"`
}

// ReplyRecord tracks a reply to an auction's anchor message. Each reply has
// its own deletion time.
type ReplyRecord struct {
	ReplyID          string    `db:"reply_id"`
	AuctionMessageID string    `db:"auction_message_id"`
	ThreadID         string    `db:"thread_id"`
	AuthorID         string    `db:"author_id"`
	DeletionTime     time.Time `db:"deletion_time"`
	IsDeleted        bool      `db:"is_deleted"`
	ReactionAdded    bool      `db:"reaction_added"`
}

// StatusReport summarises a guild's auction state for the control surface.
type StatusReport struct {
	GuildID              string
	AuctionChannelIDs    []string
	ActiveAuctions       int
	ActiveReplies        int
	SendConfirmation     bool
	DeleteThreadOnExpire bool
}

// SweepResult counts what one reaper pass did for a guild.
type SweepResult struct {
	GuildID         string
	RepliesReaped   int
	AuctionsReaped  int
	ThreadsDeleted  int
	MessagesDeleted int
	Retried         int
	Skipped         int // due rows that could not be read
}

// Add accumulates another result into r.
func (r *SweepResult) Add(o SweepResult) {
	r.RepliesReaped += o.RepliesReaped
	r.AuctionsReaped += o.AuctionsReaped
	r.ThreadsDeleted += o.ThreadsDeleted
	r.MessagesDeleted += o.MessagesDeleted
	r.Retried += o.Retried
	r.Skipped += o.Skipped
}

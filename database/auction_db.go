package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-bot/models"
)

// column describes a column that must exist on a table. Older databases are
// brought up to date by adding whichever columns are missing.
type column struct {
	name string
	def  string
}

var auctionColumns = []column{
	{"message_id", "TEXT PRIMARY KEY"},
	{"channel_id", "TEXT NOT NULL DEFAULT ''"},
	{"guild_id", "TEXT NOT NULL DEFAULT ''"},
	{"author_id", "TEXT NOT NULL DEFAULT ''"},
	{"thread_id", "TEXT NOT NULL DEFAULT ''"},
	{"anchor_message_id", "TEXT NOT NULL DEFAULT ''"},
	{"created_at", "INTEGER NOT NULL DEFAULT 0"},
	{"deletion_time", "INTEGER NOT NULL DEFAULT 0"},
	{"is_deleted", "INTEGER NOT NULL DEFAULT 0"},
	{"delete_thread_on_expire", "INTEGER NOT NULL DEFAULT 1"},
}

var replyColumns = []column{
	{"reply_id", "TEXT PRIMARY KEY"},
	{"auction_message_id", "TEXT NOT NULL DEFAULT ''"},
	{"thread_id", "TEXT NOT NULL DEFAULT ''"},
	{"author_id", "TEXT NOT NULL DEFAULT ''"},
	{"deletion_time", "INTEGER NOT NULL DEFAULT 0"},
	{"is_deleted", "INTEGER NOT NULL DEFAULT 0"},
	{"reaction_added", "INTEGER NOT NULL DEFAULT 0"},
}

// createTables creates the auctions and replies tables and adds any column
// an older file is missing.
func createTables(db *sql.DB) error {
	if err := ensureTable(db, "auctions", auctionColumns); err != nil {
		return err
	}
	if err := ensureTable(db, "replies", replyColumns); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_auctions_due ON auctions(is_deleted, deletion_time);",
		"CREATE INDEX IF NOT EXISTS idx_auctions_anchor ON auctions(anchor_message_id);",
		"CREATE INDEX IF NOT EXISTS idx_replies_due ON replies(is_deleted, deletion_time);",
		"CREATE INDEX IF NOT EXISTS idx_replies_thread ON replies(thread_id);",
	}
	for _, indexQuery := range indexes {
		if _, err := db.Exec(indexQuery); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func ensureTable(db *sql.DB, table string, columns []column) error {
	ddl := "CREATE TABLE IF NOT EXISTS " + table + " ("
	for i, c := range columns {
		if i > 0 {
			ddl += ", "
		}
		ddl += c.name + " " + c.def
	}
	ddl += ");"
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	existing, err := tableColumns(db, table)
	if err != nil {
		return err
	}
	for _, c := range columns[1:] {
		if existing[c.name] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, c.name, c.def)
		if _, err := db.Exec(alter); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", table, c.name, err)
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info for %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Times are stored as unix nanoseconds so replies observed one after the
// other always get distinct deletion times.
func toUnixNano(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const auctionSelect = `SELECT message_id, channel_id, guild_id, author_id, thread_id, anchor_message_id,
        created_at, deletion_time, is_deleted, delete_thread_on_expire FROM auctions`

const replySelect = `SELECT reply_id, auction_message_id, thread_id, author_id, deletion_time,
        is_deleted, reaction_added FROM replies`

type scanner interface {
	Scan(dest ...any) error
}

func scanAuction(row scanner) (models.AuctionRecord, error) {
	var (
		rec                  models.AuctionRecord
		createdAt, deletesAt int64
		isDeleted, delThread int
	)
	err := row.Scan(&rec.MessageID, &rec.ChannelID, &rec.GuildID, &rec.AuthorID, &rec.ThreadID,
		&rec.AnchorMessageID, &createdAt, &deletesAt, &isDeleted, &delThread)
	if err != nil {
		return rec, err
	}
	rec.CreatedAt = fromUnixNano(createdAt)
	rec.DeletionTime = fromUnixNano(deletesAt)
	rec.IsDeleted = isDeleted != 0
	rec.DeleteThreadOnExpire = delThread != 0
	return rec, nil
}

func scanReply(row scanner) (models.ReplyRecord, error) {
	var (
		rec                 models.ReplyRecord
		deletesAt           int64
		isDeleted, reaction int
	)
	err := row.Scan(&rec.ReplyID, &rec.AuctionMessageID, &rec.ThreadID, &rec.AuthorID, &deletesAt,
		&isDeleted, &reaction)
	if err != nil {
		return rec, err
	}
	rec.DeletionTime = fromUnixNano(deletesAt)
	rec.IsDeleted = isDeleted != 0
	rec.ReactionAdded = reaction != 0
	return rec, nil
}

// InsertAuction saves a new auction record.
func InsertAuction(ctx context.Context, tx *sql.Tx, rec models.AuctionRecord) error {
	_, err := tx.ExecContext(ctx, `
    INSERT INTO auctions (
        message_id, channel_id, guild_id, author_id, thread_id, anchor_message_id,
        created_at, deletion_time, is_deleted, delete_thread_on_expire
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.MessageID, rec.ChannelID, rec.GuildID, rec.AuthorID, rec.ThreadID, rec.AnchorMessageID,
		toUnixNano(rec.CreatedAt), toUnixNano(rec.DeletionTime), boolToInt(rec.IsDeleted), boolToInt(rec.DeleteThreadOnExpire))
	if err != nil {
		return fmt.Errorf("failed to insert auction %s: %w", rec.MessageID, err)
	}
	return nil
}

// GetAuction returns the auction keyed by messageID, or nil if there is none.
func GetAuction(ctx context.Context, tx *sql.Tx, messageID string) (*models.AuctionRecord, error) {
	rec, err := scanAuction(tx.QueryRowContext(ctx, auctionSelect+" WHERE message_id = ?", messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load auction %s: %w", messageID, err)
	}
	return &rec, nil
}

// FindLiveAuctionByAnchor returns the non-deleted auction whose anchor is
// anchorID inside threadID, or nil.
func FindLiveAuctionByAnchor(ctx context.Context, tx *sql.Tx, threadID, anchorID string) (*models.AuctionRecord, error) {
	rec, err := scanAuction(tx.QueryRowContext(ctx,
		auctionSelect+" WHERE anchor_message_id = ? AND thread_id = ? AND is_deleted = 0", anchorID, threadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up anchor %s: %w", anchorID, err)
	}
	return &rec, nil
}

// FindAuctionByThread returns the auction that owns threadID, or nil.
func FindAuctionByThread(ctx context.Context, tx *sql.Tx, threadID string) (*models.AuctionRecord, error) {
	rec, err := scanAuction(tx.QueryRowContext(ctx, auctionSelect+" WHERE thread_id = ? LIMIT 1", threadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up thread %s: %w", threadID, err)
	}
	return &rec, nil
}

// DueAuctions returns the non-deleted auctions whose deletion time is at or
// before now, oldest first. Rows that cannot be read are left out and
// reported in skipped so the rows around them are still processed.
func DueAuctions(ctx context.Context, tx *sql.Tx, now time.Time) (due []models.AuctionRecord, skipped []error, err error) {
	rows, err := tx.QueryContext(ctx,
		auctionSelect+" WHERE is_deleted = 0 AND deletion_time <= ? ORDER BY deletion_time", toUnixNano(now))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query due auctions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanAuction(rows)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("failed to scan auction %q: %w", rec.MessageID, err))
			continue
		}
		due = append(due, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read due auctions: %w", err)
	}
	return due, skipped, nil
}

// MarkAuctionDeleted soft-deletes an auction. It reports whether a live
// record was transitioned.
func MarkAuctionDeleted(ctx context.Context, tx *sql.Tx, messageID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE auctions SET is_deleted = 1 WHERE message_id = ? AND is_deleted = 0`, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to mark auction %s deleted: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for auction %s: %w", messageID, err)
	}
	return n > 0, nil
}

// SetThreadDeletionForLive rewrites delete_thread_on_expire on every live
// auction of the guild.
func SetThreadDeletionForLive(ctx context.Context, tx *sql.Tx, enabled bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE auctions SET delete_thread_on_expire = ? WHERE is_deleted = 0`, boolToInt(enabled))
	if err != nil {
		return 0, fmt.Errorf("failed to update thread deletion flag: %w", err)
	}
	return res.RowsAffected()
}

// InsertReply saves a new reply record. A reply that is already tracked is
// left untouched.
func InsertReply(ctx context.Context, tx *sql.Tx, rec models.ReplyRecord) (bool, error) {
	res, err := tx.ExecContext(ctx, `
    INSERT OR IGNORE INTO replies (
        reply_id, auction_message_id, thread_id, author_id, deletion_time, is_deleted, reaction_added
    ) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		rec.ReplyID, rec.AuctionMessageID, rec.ThreadID, rec.AuthorID, toUnixNano(rec.DeletionTime),
		boolToInt(rec.IsDeleted), boolToInt(rec.ReactionAdded))
	if err != nil {
		return false, fmt.Errorf("failed to insert reply %s: %w", rec.ReplyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for reply %s: %w", rec.ReplyID, err)
	}
	return n > 0, nil
}

// GetReply returns the reply keyed by replyID, or nil.
func GetReply(ctx context.Context, tx *sql.Tx, replyID string) (*models.ReplyRecord, error) {
	rec, err := scanReply(tx.QueryRowContext(ctx, replySelect+" WHERE reply_id = ?", replyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reply %s: %w", replyID, err)
	}
	return &rec, nil
}

// DueReplies returns the non-deleted replies whose deletion time is at or
// before now, oldest first. Unreadable rows are reported in skipped.
func DueReplies(ctx context.Context, tx *sql.Tx, now time.Time) (due []models.ReplyRecord, skipped []error, err error) {
	rows, err := tx.QueryContext(ctx,
		replySelect+" WHERE is_deleted = 0 AND deletion_time <= ? ORDER BY deletion_time", toUnixNano(now))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query due replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanReply(rows)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("failed to scan reply %q: %w", rec.ReplyID, err))
			continue
		}
		due = append(due, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read due replies: %w", err)
	}
	return due, skipped, nil
}

// MarkReplyDeleted soft-deletes a reply. It reports whether a live record
// was transitioned.
func MarkReplyDeleted(ctx context.Context, tx *sql.Tx, replyID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE replies SET is_deleted = 1 WHERE reply_id = ? AND is_deleted = 0`, replyID)
	if err != nil {
		return false, fmt.Errorf("failed to mark reply %s deleted: %w", replyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for reply %s: %w", replyID, err)
	}
	return n > 0, nil
}

// MarkThreadRepliesDeleted soft-deletes every live reply inside threadID.
func MarkThreadRepliesDeleted(ctx context.Context, tx *sql.Tx, threadID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE replies SET is_deleted = 1 WHERE thread_id = ? AND is_deleted = 0`, threadID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark replies in thread %s deleted: %w", threadID, err)
	}
	return res.RowsAffected()
}

// SetReactionAdded records that the timer reaction was placed on a reply.
// The flag only ever moves from false to true.
func SetReactionAdded(ctx context.Context, tx *sql.Tx, replyID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE replies SET reaction_added = 1 WHERE reply_id = ? AND reaction_added = 0`, replyID)
	if err != nil {
		return false, fmt.Errorf("failed to set reaction flag on reply %s: %w", replyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for reply %s: %w", replyID, err)
	}
	return n > 0, nil
}

// CountLive returns the number of non-deleted auctions and replies.
func CountLive(ctx context.Context, tx *sql.Tx) (auctions, replies int, err error) {
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM auctions WHERE is_deleted = 0`).Scan(&auctions); err != nil {
		return 0, 0, fmt.Errorf("failed to count auctions: %w", err)
	}
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM replies WHERE is_deleted = 0`).Scan(&replies); err != nil {
		return 0, 0, fmt.Errorf("failed to count replies: %w", err)
	}
	return auctions, replies, nil
}

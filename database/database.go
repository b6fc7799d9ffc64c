package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
	"go.uber.org/zap"
)

const (
	// ConfigFileName is the per-guild configuration file.
	ConfigFileName = "config.json"
	// DBFileName is the per-guild auction database.
	DBFileName = "auction_system.db"
)

// ErrInvalidGuildID is returned for guild ids that are not decimal snowflakes.
var ErrInvalidGuildID = errors.New("invalid guild id")

// Store is the guild data store. Every guild owns a directory under root
// holding its config file and its auction database. All database work goes
// through Tx, which serialises callers on a single process-wide mutex.
type Store struct {
	root   string
	logger *zap.SugaredLogger

	txMu sync.Mutex // serialises every Tx, across all guilds

	connMu      sync.Mutex
	connections map[string]*sql.DB // guildID -> db connection
}

// NewStore creates a store rooted at root. The directory is created if it
// does not exist.
func NewStore(root string, logger *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data root %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		root:        root,
		logger:      logger,
		connections: make(map[string]*sql.DB),
	}, nil
}

// Root returns the data root directory.
func (s *Store) Root() string {
	return s.root
}

// GuildDir returns the directory holding a guild's files.
func (s *Store) GuildDir(guildID string) string {
	return filepath.Join(s.root, guildID)
}

// ConfigPath returns the path of a guild's config file.
func (s *Store) ConfigPath(guildID string) string {
	return filepath.Join(s.GuildDir(guildID), ConfigFileName)
}

// DBPath returns the path of a guild's auction database.
func (s *Store) DBPath(guildID string) string {
	return filepath.Join(s.GuildDir(guildID), DBFileName)
}

func validGuildID(guildID string) bool {
	if guildID == "" {
		return false
	}
	_, err := strconv.ParseUint(guildID, 10, 64)
	return err == nil
}

// HasGuild reports whether the guild already has a database on disk.
func (s *Store) HasGuild(guildID string) bool {
	if !validGuildID(guildID) {
		return false
	}
	return fileExists(s.DBPath(guildID))
}

// Ensure creates the guild directory and database schema if needed. It is
// idempotent; older databases get any missing columns added.
func (s *Store) Ensure(guildID string) error {
	_, err := s.db(guildID)
	return err
}

// db returns the cached connection for a guild, opening and migrating the
// database on first use.
func (s *Store) db(guildID string) (*sql.DB, error) {
	if !validGuildID(guildID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGuildID, guildID)
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if db, ok := s.connections[guildID]; ok {
		return db, nil
	}

	if err := os.MkdirAll(s.GuildDir(guildID), 0755); err != nil {
		return nil, fmt.Errorf("failed to create guild directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.DBPath(guildID)+"?_busy_timeout=5000&_foreign_keys=off")
	if err != nil {
		return nil, fmt.Errorf("failed to open database for guild %s: %w", guildID, err)
	}
	// One writer at a time; the store serialises transactions anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database for guild %s: %w", guildID, err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema for guild %s: %w", guildID, err)
	}

	s.connections[guildID] = db
	s.logger.Debugw("guild database ready", "guild", guildID, "path", s.DBPath(guildID))
	return db, nil
}

// Tx runs fn inside a transaction against the guild's database while holding
// the process-wide store mutex. The transaction is committed when fn returns
// nil and rolled back otherwise.
func (s *Store) Tx(ctx context.Context, guildID string, fn func(tx *sql.Tx) error) error {
	db, err := s.db(guildID)
	if err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for guild %s: %w", guildID, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warnw("rollback failed", "guild", guildID, "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for guild %s: %w", guildID, err)
	}
	return nil
}

// Guilds lists every guild directory on disk that holds a database or a
// config file, sorted by id. It does not depend on which guilds have been
// loaded in this process.
func (s *Store) Guilds() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data root %s: %w", s.root, err)
	}

	var guilds []string
	for _, entry := range entries {
		if !entry.IsDir() || !validGuildID(entry.Name()) {
			continue
		}
		if fileExists(filepath.Join(s.root, entry.Name(), DBFileName)) ||
			fileExists(filepath.Join(s.root, entry.Name(), ConfigFileName)) {
			guilds = append(guilds, entry.Name())
		}
	}
	sort.Slice(guilds, func(i, j int) bool {
		a, _ := strconv.ParseUint(guilds[i], 10, 64)
		b, _ := strconv.ParseUint(guilds[j], 10, 64)
		return a < b
	})
	return guilds, nil
}

// Close closes every open guild database.
func (s *Store) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	var firstErr error
	for guildID, db := range s.connections {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close database for guild %s: %w", guildID, err)
		}
		delete(s.connections, guildID)
	}
	return firstErr
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

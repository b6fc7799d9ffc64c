package database

import (
	"fmt"
	"sync"

	"auction-bot/models"

	"go.uber.org/zap"
)

// Registry is the in-memory view of every guild's config. Configs are read
// from disk on first use and written back atomically on every mutation.
type Registry struct {
	store  *Store
	logger *zap.SugaredLogger

	mu      sync.Mutex
	configs map[string]models.GuildConfig
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store *Store, logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{
		store:   store,
		logger:  logger,
		configs: make(map[string]models.GuildConfig),
	}
}

// Store returns the underlying data store.
func (r *Registry) Store() *Store {
	return r.store
}

// Ensure creates the guild's directory and database.
func (r *Registry) Ensure(guildID string) error {
	return r.store.Ensure(guildID)
}

// Get returns a copy of the guild's config. It never creates files. A config
// file that cannot be parsed yields the defaults and is left on disk until
// the next successful save replaces it.
func (r *Registry) Get(guildID string) (models.GuildConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.loadLocked(guildID)
	if err != nil {
		return cfg, err
	}
	return cfg.Clone(), nil
}

func (r *Registry) loadLocked(guildID string) (models.GuildConfig, error) {
	if cfg, ok := r.configs[guildID]; ok {
		return cfg, nil
	}
	if !validGuildID(guildID) {
		return models.DefaultGuildConfig(guildID), fmt.Errorf("%w: %q", ErrInvalidGuildID, guildID)
	}

	cfg, err := r.store.ReadGuildConfig(guildID)
	if err != nil {
		r.logger.Warnw("guild config unreadable, using defaults", "guild", guildID, "error", err)
		cfg = models.DefaultGuildConfig(guildID)
	}
	r.configs[guildID] = cfg
	return cfg, nil
}

// Update applies fn to a copy of the guild's config, persists the result and
// then makes it visible to readers. When fn or the write fails nothing
// changes.
func (r *Registry) Update(guildID string, fn func(cfg *models.GuildConfig) error) (models.GuildConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.loadLocked(guildID)
	if err != nil {
		return current, err
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return current.Clone(), err
	}
	next.GuildID = guildID

	if err := r.store.Ensure(guildID); err != nil {
		return current.Clone(), err
	}
	if err := r.store.WriteGuildConfig(next); err != nil {
		return current.Clone(), err
	}
	r.configs[guildID] = next
	return next.Clone(), nil
}

// Forget drops the cached config so the next Get re-reads the file.
func (r *Registry) Forget(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, guildID)
}

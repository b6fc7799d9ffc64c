package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"auction-bot/models"
)

// guildConfigFile is the on-disk shape of config.json. Channel ids are
// written as JSON numbers; pointers distinguish missing fields from false.
type guildConfigFile struct {
	AuctionChannels      snowflakes `json:"auction_channels"`
	SendConfirmation     *bool      `json:"send_confirmation,omitempty"`
	DeleteThreadOnExpire *bool      `json:"delete_thread_on_expire,omitempty"`
}

// snowflakes is a list of ids that reads numbers or strings and writes
// numbers.
type snowflakes []string

func (s *snowflakes) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		var str string
		if len(item) > 0 && item[0] == '"' {
			if err := json.Unmarshal(item, &str); err != nil {
				return err
			}
		} else {
			str = string(item)
		}
		if _, err := strconv.ParseUint(str, 10, 64); err != nil {
			return fmt.Errorf("invalid channel id %s: %w", item, err)
		}
		out = append(out, str)
	}
	*s = out
	return nil
}

func (s snowflakes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, id := range s {
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid channel id %q: %w", id, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(id)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ReadGuildConfig loads a guild's config.json. A missing file yields the
// defaults with a nil error; missing fields are filled with defaults.
func (s *Store) ReadGuildConfig(guildID string) (models.GuildConfig, error) {
	cfg := models.DefaultGuildConfig(guildID)
	if !validGuildID(guildID) {
		return cfg, fmt.Errorf("%w: %q", ErrInvalidGuildID, guildID)
	}

	data, err := os.ReadFile(s.ConfigPath(guildID))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config for guild %s: %w", guildID, err)
	}

	var file guildConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config for guild %s: %w", guildID, err)
	}

	seen := make(map[string]bool, len(file.AuctionChannels))
	for _, id := range file.AuctionChannels {
		if seen[id] {
			continue
		}
		seen[id] = true
		cfg.AuctionChannelIDs = append(cfg.AuctionChannelIDs, id)
	}
	if file.SendConfirmation != nil {
		cfg.SendConfirmation = *file.SendConfirmation
	}
	if file.DeleteThreadOnExpire != nil {
		cfg.DeleteThreadOnExpire = *file.DeleteThreadOnExpire
	}
	return cfg, nil
}

// WriteGuildConfig atomically replaces a guild's config.json by writing a
// temporary file in the same directory and renaming it over the original.
func (s *Store) WriteGuildConfig(cfg models.GuildConfig) error {
	if !validGuildID(cfg.GuildID) {
		return fmt.Errorf("%w: %q", ErrInvalidGuildID, cfg.GuildID)
	}

	dir := s.GuildDir(cfg.GuildID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create guild directory: %w", err)
	}

	sendConfirmation := cfg.SendConfirmation
	deleteThread := cfg.DeleteThreadOnExpire
	file := guildConfigFile{
		AuctionChannels:      snowflakes(cfg.AuctionChannelIDs),
		SendConfirmation:     &sendConfirmation,
		DeleteThreadOnExpire: &deleteThread,
	}
	if file.AuctionChannels == nil {
		file.AuctionChannels = snowflakes{}
	}

	data, err := json.MarshalIndent(file, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ConfigFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp config file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, ConfigFileName)); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

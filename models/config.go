package models

import (
	"slices"
	"time"
)

// GuildConfig represents the per-guild auction configuration stored in
// <root>/<guild_id>/config.json.
type GuildConfig struct {
	GuildID              string   `json:"-"`
	AuctionChannelIDs    []string `json:"auction_channels"`
	SendConfirmation     bool     `json:"send_confirmation"`
	DeleteThreadOnExpire bool     `json:"delete_thread_on_expire"`
}

// DefaultGuildConfig returns the configuration a guild starts with.
func DefaultGuildConfig(guildID string) GuildConfig {
	return GuildConfig{
		GuildID:              guildID,
		AuctionChannelIDs:    []string{},
		SendConfirmation:     true,
		DeleteThreadOnExpire: true,
	}
}

// IsAuctionChannel reports whether channelID is enabled for ingestion.
func (c GuildConfig) IsAuctionChannel(channelID string) bool {
	return slices.Contains(c.AuctionChannelIDs, channelID)
}

// Clone returns a copy that does not share the channel slice.
func (c GuildConfig) Clone() GuildConfig {
	c.AuctionChannelIDs = slices.Clone(c.AuctionChannelIDs)
	if c.AuctionChannelIDs == nil {
		c.AuctionChannelIDs = []string{}
	}
	return c
}

// Settings holds the process-wide settings loaded by the config package.
type Settings struct {
	BotToken string          `mapstructure:"BOT_TOKEN"`
	Bot      BotSettings     `mapstructure:"bot"`
	Auction  AuctionSettings `mapstructure:"auction"`
	Commands CommandsConfig  `mapstructure:"commands"`
	Server   ServerSettings  `mapstructure:"server"`
}

// BotSettings configures the chat client and the admin log channel.
type BotSettings struct {
	AdminChannelID string `mapstructure:"adminChannelId"`
	LogLevel       string `mapstructure:"logLevel"`
}

// AuctionSettings are the operational knobs of the auction engine.
type AuctionSettings struct {
	DataDir                  string        `mapstructure:"dataDir"`
	ReapInterval             time.Duration `mapstructure:"reapInterval"`
	Retention                time.Duration `mapstructure:"retention"`
	ReplyPacing              time.Duration `mapstructure:"replyPacing"`
	AuctionPacing            time.Duration `mapstructure:"auctionPacing"`
	ShutdownGrace            time.Duration `mapstructure:"shutdownGrace"`
	SuppressEmbedsEverywhere bool          `mapstructure:"suppressEmbedsEverywhere"`
}

// ServerSettings configures the metrics and health listeners. An empty
// address disables the listener.
type ServerSettings struct {
	MetricsAddr string `mapstructure:"metricsAddr"`
	HealthAddr  string `mapstructure:"healthAddr"`
}

// CommandsConfig holds the authorization lists for admin commands.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists developer user ids and admin role ids.
type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"admins_roles"`
}

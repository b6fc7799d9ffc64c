package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-bot/models"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags to the configuration keys they override.
var flagKeys = map[string]string{
	"data-dir":      "auction.dataDir",
	"reap-interval": "auction.reapInterval",
	"metrics-addr":  "server.metricsAddr",
	"health-addr":   "server.healthAddr",
	"log-level":     "bot.logLevel",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to the config file (default ./config.yaml)")
	fs.String("data-dir", "", "directory holding one sub-directory per guild")
	fs.Duration("reap-interval", 0, "time between reaper passes")
	fs.String("metrics-addr", "", "listen address of the prometheus endpoint, empty to disable")
	fs.String("health-addr", "", "listen address of the gRPC health service, empty to disable")
	fs.String("log-level", "", "debug, info, warn or error")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("bot.adminChannelId", "")
	v.SetDefault("bot.logLevel", "info")
	v.SetDefault("auction.dataDir", "./data/auctions")
	v.SetDefault("auction.reapInterval", 30*time.Minute)
	v.SetDefault("auction.retention", 240*time.Hour)
	v.SetDefault("auction.replyPacing", 500*time.Millisecond)
	v.SetDefault("auction.auctionPacing", time.Second)
	v.SetDefault("auction.shutdownGrace", 5*time.Second)
	v.SetDefault("auction.suppressEmbedsEverywhere", false)
	v.SetDefault("commands.auth.developers", []string{})
	v.SetDefault("commands.auth.admins_roles", []string{})
	v.SetDefault("server.metricsAddr", "")
	v.SetDefault("server.healthAddr", "")
}

// LoadConfig loads the process settings into the global viper instance.
// Sources, lowest precedence first:
// 1. built-in defaults
// 2. config.yaml (or the file named by --config)
// 3. environment variables, including those from a .env file
// 4. command-line flags
func LoadConfig(fs *pflag.FlagSet) (*models.Settings, error) {
	return Load(viper.GetViper(), fs)
}

// Load is LoadConfig against an explicit viper instance.
func Load(v *viper.Viper, fs *pflag.FlagSet) (*models.Settings, error) {
	// A missing .env file is normal.
	_ = godotenv.Load()

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var settings models.Settings
	err := v.Unmarshal(&settings, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := Validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate rejects settings the engine cannot run with.
func Validate(s *models.Settings) error {
	switch {
	case s.Auction.DataDir == "":
		return errors.New("auction.dataDir must not be empty")
	case s.Auction.ReapInterval <= 0:
		return fmt.Errorf("auction.reapInterval must be positive, got %s", s.Auction.ReapInterval)
	case s.Auction.Retention <= 0:
		return fmt.Errorf("auction.retention must be positive, got %s", s.Auction.Retention)
	case s.Auction.ReplyPacing < 0 || s.Auction.AuctionPacing < 0:
		return errors.New("auction pacing must not be negative")
	}
	return nil
}

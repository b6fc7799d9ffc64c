package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load(viper.New(), newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "./data/auctions", s.Auction.DataDir)
	assert.Equal(t, 30*time.Minute, s.Auction.ReapInterval)
	assert.Equal(t, 10*24*time.Hour, s.Auction.Retention)
	assert.Equal(t, 500*time.Millisecond, s.Auction.ReplyPacing)
	assert.Equal(t, time.Second, s.Auction.AuctionPacing)
	assert.Equal(t, 5*time.Second, s.Auction.ShutdownGrace)
	assert.False(t, s.Auction.SuppressEmbedsEverywhere)
	assert.Equal(t, "info", s.Bot.LogLevel)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
bot:
  adminChannelId: "123"
auction:
  dataDir: /srv/auctions
  reapInterval: 10m
  replyPacing: 250ms
  suppressEmbedsEverywhere: true
commands:
  auth:
    developers: ["1", "2"]
    admins_roles: ["3"]
server:
  metricsAddr: ":9100"
`)
	t.Setenv("BOT_TOKEN", "secret")
	t.Setenv("AUCTION_RETENTION", "48h")
	t.Setenv("COMMANDS_AUTH_ADMINS_ROLES", "4,5")

	s, err := Load(viper.New(), newFlags(t, "--config", path, "--reap-interval", "5m", "--health-addr", ":9200"))
	require.NoError(t, err)

	assert.Equal(t, "secret", s.BotToken)
	assert.Equal(t, "123", s.Bot.AdminChannelID)
	assert.Equal(t, "/srv/auctions", s.Auction.DataDir)
	assert.Equal(t, 5*time.Minute, s.Auction.ReapInterval)
	assert.Equal(t, 48*time.Hour, s.Auction.Retention)
	assert.Equal(t, 250*time.Millisecond, s.Auction.ReplyPacing)
	assert.True(t, s.Auction.SuppressEmbedsEverywhere)
	assert.Equal(t, []string{"1", "2"}, s.Commands.Auth.Developers)
	assert.Equal(t, []string{"4", "5"}, s.Commands.Auth.AdminsRoles)
	assert.Equal(t, ":9100", s.Server.MetricsAddr)
	assert.Equal(t, ":9200", s.Server.HealthAddr)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(viper.New(), newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, "auction:\n  reapInterval: 0s\n")
	_, err := Load(viper.New(), newFlags(t, "--config", path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reapInterval")
}

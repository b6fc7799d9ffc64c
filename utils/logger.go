package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red

	maxFieldLen = 1024
)

var (
	mu        sync.RWMutex
	logger    = zap.NewNop().Sugar()
	session   *discordgo.Session
	channelID string
)

// NewLogger builds the process logger at the given level.
func NewLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l.Sugar(), nil
}

// InitLogger installs the process logger and, when adminChannel is set, the
// admin channel sink.
func InitLogger(l *zap.SugaredLogger, s *discordgo.Session, adminChannel string) {
	mu.Lock()
	defer mu.Unlock()
	if l != nil {
		logger = l
	}
	session = s
	channelID = adminChannel
	if s != nil && channelID == "" {
		logger.Warn("bot.adminChannelId is not set; admin channel logging is disabled")
	}
}

// Logger returns the process logger.
func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Log writes to the process log and mirrors the entry to the admin channel.
func Log(level, module, operation, details string) {
	mu.RLock()
	l, s, ch := logger, session, channelID
	mu.RUnlock()

	kv := []any{"module", module, "operation", operation, "details", details}
	var color int
	switch level {
	case "WARN":
		color = ColorWarn
		l.Warnw("admin log", kv...)
	case "ERROR":
		color = ColorError
		l.Errorw("admin log", kv...)
	default:
		color = ColorInfo
		l.Infow("admin log", kv...)
	}

	if s == nil || ch == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: clip(module), Inline: true},
			{Name: "Operation", Value: clip(operation), Inline: true},
			{Name: "Details", Value: clip(details)},
		},
	}
	if _, err := s.ChannelMessageSendEmbed(ch, embed); err != nil {
		l.Warnw("failed to send log message to admin channel", "error", err)
	}
}

func clip(s string) string {
	if s == "" {
		return "-"
	}
	r := []rune(s)
	if len(r) > maxFieldLen {
		return string(r[:maxFieldLen-1]) + "…"
	}
	return s
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}

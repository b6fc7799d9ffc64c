package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogWithoutAdminChannel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	InitLogger(zap.New(core).Sugar(), nil, "")
	t.Cleanup(func() { InitLogger(zap.NewNop().Sugar(), nil, "") })

	Info("reaper", "sweep", "2 auctions removed")
	Warn("control", "toggle", "rewrite failed")
	Error("store", "open", "disk full")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	assert.Equal(t, "reaper", entries[0].ContextMap()["module"])
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "-", clip(""))
	assert.Equal(t, "short", clip("short"))
	long := clip(strings.Repeat("x", 2000))
	assert.Equal(t, maxFieldLen, utf8.RuneCountInString(long))
}

package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCronTickerImmediate(t *testing.T) {
	ticker, err := NewCronTicker(time.Hour, true, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("no immediate tick")
	}
}

func TestCronTickerDropsOverlappingTicks(t *testing.T) {
	ticker, err := NewCronTicker(time.Hour, false, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer ticker.Stop()

	ticker.fire()
	ticker.fire()
	assert.Len(t, ticker.ch, 1)
}

func TestCronTickerRejectsBadInterval(t *testing.T) {
	_, err := NewCronTicker(0, false, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestCronTickerStopIsIdempotent(t *testing.T) {
	ticker, err := NewCronTicker(time.Hour, false, zap.NewNop().Sugar())
	require.NoError(t, err)
	ticker.Stop()
	ticker.Stop()
}

package bot

import (
	"fmt"
	"sync"
	"time"

	"auction-bot/auction"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronTicker is an auction.TickSource driven by a cron schedule. A tick that
// arrives while the previous pass is still running is dropped.
type CronTicker struct {
	cron *cron.Cron
	ch   chan time.Time
	once sync.Once
}

var _ auction.TickSource = (*CronTicker)(nil)

// NewCronTicker schedules a tick every interval and, when immediate is set,
// fires one right away.
func NewCronTicker(interval time.Duration, immediate bool, logger *zap.SugaredLogger) (*CronTicker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid reap interval %s", interval)
	}
	t := &CronTicker{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		ch:   make(chan time.Time, 1),
	}
	if _, err := t.cron.AddFunc(fmt.Sprintf("@every %s", interval), t.fire); err != nil {
		return nil, fmt.Errorf("could not set up reaper schedule: %w", err)
	}
	t.cron.Start()
	if immediate {
		t.fire()
	}
	logger.Infow("reaper scheduled", "interval", interval)
	return t, nil
}

func (t *CronTicker) fire() {
	select {
	case t.ch <- time.Now():
	default:
	}
}

// C returns the tick channel.
func (t *CronTicker) C() <-chan time.Time { return t.ch }

// Stop stops the schedule. Ticks already buffered are discarded.
func (t *CronTicker) Stop() {
	t.once.Do(func() {
		<-t.cron.Stop().Done()
	})
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

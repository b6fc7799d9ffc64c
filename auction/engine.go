package auction

import (
	"time"

	"auction-bot/database"

	"go.uber.org/zap"
)

// Options configures an Engine. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	Registry *database.Registry
	Platform Platform
	Logger   *zap.SugaredLogger

	// Authorizer guards the control surface. Required.
	Authorizer Authorizer

	// Clock defaults to time.Now.
	Clock Clock
	// Sleep defaults to a context-aware timer sleep.
	Sleep SleepFunc

	// Retention defaults to 10 days.
	Retention time.Duration
	// ReplyPacing defaults to 500ms.
	ReplyPacing time.Duration
	// AuctionPacing defaults to 1s.
	AuctionPacing time.Duration

	// SuppressEmbedsEverywhere suppresses embeds on every observed user
	// message instead of auction posts only.
	SuppressEmbedsEverywhere bool

	// DedupWindow is how long a message id is remembered to drop replayed
	// gateway events. Defaults to 30s.
	DedupWindow time.Duration
	// ReplyIndexSize bounds the reply id -> guild id index. Defaults to 4096.
	ReplyIndexSize int
}

// Engine bundles the auction lifecycle components around one registry and
// one platform.
type Engine struct {
	Ingestor   *Ingestor
	Replies    *ReplyTracker
	Reaper     *Reaper
	Control    *Control
	Dispatcher *Dispatcher
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = Sleep
	}
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.ReplyPacing <= 0 {
		o.ReplyPacing = 500 * time.Millisecond
	}
	if o.AuctionPacing <= 0 {
		o.AuctionPacing = time.Second
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = 30 * time.Second
	}
	if o.ReplyIndexSize <= 0 {
		o.ReplyIndexSize = 4096
	}
}

// New wires the engine components together.
func New(opts Options) (*Engine, error) {
	opts.setDefaults()

	replies := &ReplyTracker{
		registry:  opts.Registry,
		platform:  opts.Platform,
		logger:    opts.Logger.Named("replies"),
		now:       opts.Clock,
		retention: opts.Retention,
	}
	ingestor := &Ingestor{
		registry:  opts.Registry,
		platform:  opts.Platform,
		logger:    opts.Logger.Named("ingest"),
		now:       opts.Clock,
		retention: opts.Retention,
	}
	reaper := &Reaper{
		registry:      opts.Registry,
		platform:      opts.Platform,
		logger:        opts.Logger.Named("reaper"),
		now:           opts.Clock,
		sleep:         opts.Sleep,
		replyPacing:   opts.ReplyPacing,
		auctionPacing: opts.AuctionPacing,
	}
	control := &Control{
		registry: opts.Registry,
		reaper:   reaper,
		auth:     opts.Authorizer,
		logger:   opts.Logger.Named("control"),
	}
	dispatcher, err := newDispatcher(opts, ingestor, replies)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Ingestor:   ingestor,
		Replies:    replies,
		Reaper:     reaper,
		Control:    control,
		Dispatcher: dispatcher,
	}, nil
}

// Close releases background resources held by the engine.
func (e *Engine) Close() {
	e.Dispatcher.close()
}

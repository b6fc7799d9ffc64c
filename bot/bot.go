package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"auction-bot/auction"
	"auction-bot/database"
	"auction-bot/models"
	"auction-bot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Command defines the interface for a bot command.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Settings *models.Settings
	Logger   *zap.SugaredLogger
	Store    *database.Store
	Registry *database.Registry
	Engine   *auction.Engine
	Auth     *utils.Auth
	Servers  *Servers
	Commands map[string]Command

	ctx        context.Context
	reaperOnce sync.Once
}

// NewBot creates the session, the guild store and the auction engine.
func NewBot(settings *models.Settings, logger *zap.SugaredLogger) (*Bot, error) {
	if settings.BotToken == "" {
		return nil, errors.New("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + settings.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions

	store, err := database.NewStore(settings.Auction.DataDir, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	registry := database.NewRegistry(store, logger.Named("registry"))
	auth := utils.NewAuth(settings.Commands)

	engine, err := auction.New(auction.Options{
		Registry:                 registry,
		Platform:                 NewPlatform(dg),
		Logger:                   logger,
		Authorizer:               auth,
		Retention:                settings.Auction.Retention,
		ReplyPacing:              settings.Auction.ReplyPacing,
		AuctionPacing:            settings.Auction.AuctionPacing,
		SuppressEmbedsEverywhere: settings.Auction.SuppressEmbedsEverywhere,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Bot{
		Session:  dg,
		Settings: settings,
		Logger:   logger,
		Store:    store,
		Registry: registry,
		Engine:   engine,
		Auth:     auth,
		Servers: &Servers{
			MetricsAddr: settings.Server.MetricsAddr,
			HealthAddr:  settings.Server.HealthAddr,
			Logger:      logger.Named("server"),
		},
		Commands: make(map[string]Command),
		ctx:      context.Background(),
	}, nil
}

// Context is cancelled when the bot shuts down.
func (b *Bot) Context() context.Context {
	return b.ctx
}

// RegisterCommands registers the provided commands.
func (b *Bot) RegisterCommands(commands []Command) {
	for _, cmd := range commands {
		b.Commands[cmd.Definition().Name] = cmd
	}
}

// Start opens the bot's session and registers handlers and slash commands.
func (b *Bot) Start(ctx context.Context, registerHandlers func(*Bot)) error {
	b.ctx = ctx
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	utils.InitLogger(b.Logger, b.Session, b.Settings.Bot.AdminChannelID)

	for _, cmd := range b.Commands {
		if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", cmd.Definition()); err != nil {
			b.Logger.Errorw("cannot create command", "command", cmd.Definition().Name, "error", err)
		}
	}

	b.Logger.Info("bot is now running, press CTRL-C to exit")
	return nil
}

// StartReaper starts the periodic reaper once the gateway is ready. Later
// calls, for instance after a reconnect, do nothing.
func (b *Bot) StartReaper() {
	b.reaperOnce.Do(func() {
		ticker, err := NewCronTicker(b.Settings.Auction.ReapInterval, true, b.Logger.Named("scheduler"))
		if err != nil {
			b.Logger.Errorw("could not start reaper", "error", err)
			return
		}
		b.Engine.Reaper.OnSweep = b.reportSweep
		b.Engine.Reaper.Start(b.ctx, ticker)
		b.Servers.SetReady(true)
	})
}

func (b *Bot) reportSweep(res models.SweepResult, err error) {
	if err != nil {
		utils.Warn("reaper", "sweep", fmt.Sprintf("%d replies, %d auctions removed; %d to retry, %d unreadable: %v",
			res.RepliesReaped, res.AuctionsReaped, res.Retried, res.Skipped, err))
		return
	}
	if res.RepliesReaped > 0 || res.AuctionsReaped > 0 {
		utils.Info("reaper", "sweep", fmt.Sprintf("%d replies, %d auctions and %d threads removed",
			res.RepliesReaped, res.AuctionsReaped, res.ThreadsDeleted))
	}
}

// Stop cancels the reaper within the shutdown grace period and closes the
// session and the store.
func (b *Bot) Stop() {
	b.Servers.SetReady(false)
	if err := b.Engine.Reaper.Stop(b.Settings.Auction.ShutdownGrace); err != nil {
		b.Logger.Warnw("reaper shutdown timed out", "error", err)
	}
	if b.Session != nil {
		if err := b.Session.Close(); err != nil {
			b.Logger.Warnw("error closing session", "error", err)
		}
	}
	b.Engine.Close()
	if err := b.Store.Close(); err != nil {
		b.Logger.Warnw("error closing store", "error", err)
	}
	b.Logger.Info("bot stopped gracefully")
}

// Run is the main entry point for the bot application. It blocks until
// SIGINT or SIGTERM.
func Run(settings *models.Settings, logger *zap.SugaredLogger, registerHandlers func(*Bot), commands []Command) error {
	bot, err := NewBot(settings, logger)
	if err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}
	bot.RegisterCommands(commands)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := bot.Start(ctx, registerHandlers); err != nil {
		bot.Engine.Close()
		bot.Store.Close()
		return fmt.Errorf("error starting bot: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Servers.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		bot.Stop()
		return nil
	})
	return g.Wait()
}

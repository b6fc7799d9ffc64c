package main

import (
	"fmt"
	"os"

	"auction-bot/bot"
	"auction-bot/command"
	"auction-bot/config"
	"auction-bot/handlers"
	"auction-bot/utils"

	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	settings, err := config.LoadConfig(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(settings.Bot.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	utils.InitLogger(logger, nil, "")

	commands := make([]bot.Command, len(command.AllCommands))
	for i, cmd := range command.AllCommands {
		commands[i] = cmd
	}

	logger.Infow("starting auction bot", "data_dir", settings.Auction.DataDir, "reap_interval", settings.Auction.ReapInterval)
	if err := bot.Run(settings, logger, handlers.Register, commands); err != nil {
		logger.Errorw("bot exited with error", "error", err)
		os.Exit(1)
	}
}

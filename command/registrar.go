package command

import "github.com/bwmarrin/discordgo"

// Command is a slash command the bot registers in every guild it joins.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// AllCommands is the command set created on startup: the /auction admin
// surface and /ping.
var AllCommands = []Command{
	&AuctionCommand{},
	&PingCommand{},
}

// GetCommandDefinitions returns the definitions of AllCommands in order.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(AllCommands))
	for _, cmd := range AllCommands {
		defs = append(defs, cmd.Definition())
	}
	return defs
}

// IsAuctionSubcommand reports whether data is the given /auction subcommand.
func IsAuctionSubcommand(data discordgo.ApplicationCommandInteractionData, sub string) bool {
	return data.Name == NameAuction && len(data.Options) > 0 && data.Options[0].Name == sub
}

package command

import "github.com/bwmarrin/discordgo"

// Top-level command names.
const (
	NameAuction = "auction"
	NamePing    = "ping"
)

// Subcommand names of /auction.
const (
	SubPanel              = "panel"
	SubAdd                = "add"
	SubRemove             = "remove"
	SubStatus             = "status"
	SubCleanupNow         = "cleanup-now"
	SubToggleDeletion     = "toggle-deletion"
	SubToggleConfirmation = "toggle-confirmation"

	OptionChannel = "channel"
)

// AuctionCommand defines the structure for the /auction command.
type AuctionCommand struct{}

// Definition returns the application command definition.
func (c *AuctionCommand) Definition() *discordgo.ApplicationCommand {
	dm := false
	return &discordgo.ApplicationCommand{
		Name:         NameAuction,
		Description:  "Manage auction channels",
		DMPermission: &dm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        SubPanel,
				Description: "Open the auction control panel",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        SubAdd,
				Description: "Turn a channel into an auction channel",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:         OptionChannel,
						Description:  "Text or announcement channel",
						Type:         discordgo.ApplicationCommandOptionChannel,
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
					},
				},
			},
			{
				Name:        SubRemove,
				Description: "Stop running auctions in a channel",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:         OptionChannel,
						Description:  "A configured auction channel",
						Type:         discordgo.ApplicationCommandOptionString,
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			{
				Name:        SubStatus,
				Description: "Show auction channels, live auctions and settings",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        SubCleanupNow,
				Description: "Delete expired auctions and replies now",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        SubToggleDeletion,
				Description: "Toggle whether auction threads are deleted on expiry",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        SubToggleConfirmation,
				Description: "Toggle the confirmation message posted in new auction threads",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        NamePing,
		Description: "Responds with Pong!",
	}
}

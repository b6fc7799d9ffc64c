package utils

import (
	"slices"

	"auction-bot/auction"
	"auction-bot/models"

	"github.com/bwmarrin/discordgo"
)

// Auth decides who may administer auctions.
type Auth struct {
	config models.CommandsConfig
}

// NewAuth creates an Auth from the commands configuration.
func NewAuth(cfg models.CommandsConfig) *Auth {
	return &Auth{config: cfg}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return userID != "" && slices.Contains(a.config.Auth.Developers, userID)
}

// HasAdminRole checks if any of the roles is a configured admin role.
func (a *Auth) HasAdminRole(roles []string) bool {
	for _, role := range roles {
		if slices.Contains(a.config.Auth.AdminsRoles, role) {
			return true
		}
	}
	return false
}

// IsAdmin implements auction.Authorizer. Developers, members with a
// configured admin role and members holding Administrator or Manage Server
// in the guild are admins.
func (a *Auth) IsAdmin(guildID string, caller auction.Caller) bool {
	if a.IsDeveloper(caller.UserID) || a.HasAdminRole(caller.RoleIDs) {
		return true
	}
	const mask = discordgo.PermissionAdministrator | discordgo.PermissionManageGuild
	return caller.Permissions&mask != 0
}

// CallerFromInteraction extracts the caller of an interaction.
func CallerFromInteraction(i *discordgo.InteractionCreate) auction.Caller {
	if i.Member != nil {
		c := auction.Caller{RoleIDs: i.Member.Roles, Permissions: i.Member.Permissions}
		if i.Member.User != nil {
			c.UserID = i.Member.User.ID
		}
		return c
	}
	if i.User != nil {
		return auction.Caller{UserID: i.User.ID}
	}
	return auction.Caller{}
}

var _ auction.Authorizer = (*Auth)(nil)

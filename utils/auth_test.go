package utils

import (
	"testing"

	"auction-bot/auction"
	"auction-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestAuthIsAdmin(t *testing.T) {
	auth := NewAuth(models.CommandsConfig{Auth: models.AuthConfig{
		Developers:  []string{"10"},
		AdminsRoles: []string{"20"},
	}})

	tests := []struct {
		name   string
		caller auction.Caller
		want   bool
	}{
		{"developer", auction.Caller{UserID: "10"}, true},
		{"admin role", auction.Caller{UserID: "11", RoleIDs: []string{"5", "20"}}, true},
		{"administrator permission", auction.Caller{UserID: "11", Permissions: discordgo.PermissionAdministrator}, true},
		{"manage server permission", auction.Caller{UserID: "11", Permissions: discordgo.PermissionManageGuild}, true},
		{"plain member", auction.Caller{UserID: "11", RoleIDs: []string{"5"}, Permissions: discordgo.PermissionSendMessages}, false},
		{"anonymous", auction.Caller{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.IsAdmin("1", tt.caller))
		})
	}
}

func TestCallerFromInteraction(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "7"},
			Roles:       []string{"8"},
			Permissions: discordgo.PermissionManageGuild,
		},
	}}
	assert.Equal(t, auction.Caller{UserID: "7", RoleIDs: []string{"8"}, Permissions: discordgo.PermissionManageGuild}, CallerFromInteraction(i))

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "9"}}}
	assert.Equal(t, auction.Caller{UserID: "9"}, CallerFromInteraction(dm))
}

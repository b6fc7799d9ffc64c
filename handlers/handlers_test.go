package handlers

import (
	"fmt"
	"testing"

	"auction-bot/auction"
	"auction-bot/command"
	"auction-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultContent(t *testing.T) {
	assert.Equal(t, "✅ done", resultContent(auction.Result{OK: true, Message: "done"}))
	assert.Equal(t, msgForbidden, resultContent(auction.Result{Reason: auction.ReasonForbidden, Message: "no"}))
	assert.Equal(t, "⚠️ bad channel", resultContent(auction.Result{Reason: auction.ReasonInvalidChannel, Message: "bad channel"}))
}

func TestResolveChannel(t *testing.T) {
	sub := &discordgo.ApplicationCommandInteractionDataOption{
		Name: command.SubAdd,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: command.OptionChannel, Type: discordgo.ApplicationCommandOptionChannel, Value: "42"},
		},
	}
	data := discordgo.ApplicationCommandInteractionData{
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Channels: map[string]*discordgo.Channel{
				"42": {ID: "42", GuildID: "7", Type: discordgo.ChannelTypeGuildNews},
			},
		},
	}
	assert.Equal(t, auction.ChannelRef{ID: "42", GuildID: "7", Type: discordgo.ChannelTypeGuildNews}, resolveChannel(data, sub))

	// Without resolved data the type is unknown and the control surface rejects it.
	ref := resolveChannel(discordgo.ApplicationCommandInteractionData{}, sub)
	assert.Equal(t, "42", ref.ID)
	assert.Equal(t, unknownChannelType, ref.Type)
}

func TestStatusEmbed(t *testing.T) {
	e := statusEmbed(&models.StatusReport{
		AuctionChannelIDs:    []string{"1", "2"},
		ActiveAuctions:       3,
		ActiveReplies:        4,
		DeleteThreadOnExpire: false,
		SendConfirmation:     true,
	})
	require.Len(t, e.Fields, 5)
	assert.Equal(t, "<#1>\n<#2>", e.Fields[0].Value)
	assert.Equal(t, "3", e.Fields[1].Value)
	assert.Equal(t, "4", e.Fields[2].Value)
	assert.Equal(t, "Disabled", e.Fields[3].Value)
	assert.Equal(t, "Enabled", e.Fields[4].Value)

	assert.Equal(t, "None", statusEmbed(&models.StatusReport{}).Fields[0].Value)
}

func TestPanelComponents(t *testing.T) {
	rows := panelComponents(&models.StatusReport{DeleteThreadOnExpire: true})
	require.Len(t, rows, 1)
	row, ok := rows[0].(discordgo.ActionsRow)
	require.True(t, ok)

	var ids []string
	for _, c := range row.Components {
		ids = append(ids, c.(discordgo.Button).CustomID)
	}
	assert.Equal(t, []string{ButtonStatus, ButtonCleanup, ButtonToggleDeletion, ButtonToggleConfirmation}, ids)
	assert.Equal(t, discordgo.SuccessButton, row.Components[2].(discordgo.Button).Style)
	assert.Equal(t, discordgo.SecondaryButton, row.Components[3].(discordgo.Button).Style)
}

func TestChannelChoices(t *testing.T) {
	name := func(id string) string { return "#chan-" + id }
	ids := []string{"100", "200", "300"}

	all := channelChoices(ids, name, "")
	require.Len(t, all, 3)
	assert.Equal(t, "100", all[0].Value)

	filtered := channelChoices(ids, name, "#chan-2")
	require.Len(t, filtered, 1)
	assert.Equal(t, "200", filtered[0].Value)

	byID := channelChoices(ids, name, "30")
	require.Len(t, byID, 1)
	assert.Equal(t, "300", byID[0].Value)

	many := make([]string, 40)
	for i := range many {
		many[i] = fmt.Sprint(i)
	}
	assert.Len(t, channelChoices(many, name, ""), maxChoices)
}

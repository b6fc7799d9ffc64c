package handlers

import (
	"fmt"
	"strings"

	"auction-bot/auction"
	"auction-bot/bot"
	"auction-bot/models"
	"auction-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// Custom ids of the control panel buttons.
const (
	ButtonStatus             = "auction:status"
	ButtonCleanup            = "auction:cleanup"
	ButtonToggleDeletion     = "auction:toggle_deletion"
	ButtonToggleConfirmation = "auction:toggle_confirmation"
)

// HandleAddChannel handles /auction add.
func HandleAddChannel(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, ch auction.ChannelRef) {
	res := b.Engine.Control.AddChannel(b.Context(), i.GuildID, utils.CallerFromInteraction(i), ch)
	audit(i, "add_channel", res)
	respondEphemeral(b, s, i, resultContent(res))
}

// HandleRemoveChannel handles /auction remove.
func HandleRemoveChannel(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, channelID string) {
	res := b.Engine.Control.RemoveChannel(b.Context(), i.GuildID, utils.CallerFromInteraction(i), channelID)
	audit(i, "remove_channel", res)
	respondEphemeral(b, s, i, resultContent(res))
}

// HandleToggleDeletion handles /auction toggle-deletion.
func HandleToggleDeletion(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	res := b.Engine.Control.ToggleThreadDeletion(b.Context(), i.GuildID, utils.CallerFromInteraction(i))
	audit(i, "toggle_thread_deletion", res)
	respondEphemeral(b, s, i, resultContent(res))
}

// HandleToggleConfirmation handles /auction toggle-confirmation.
func HandleToggleConfirmation(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	res := b.Engine.Control.ToggleConfirmation(b.Context(), i.GuildID, utils.CallerFromInteraction(i))
	audit(i, "toggle_confirmation", res)
	respondEphemeral(b, s, i, resultContent(res))
}

// HandleStatus handles /auction status.
func HandleStatus(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	res := b.Engine.Control.Status(b.Context(), i.GuildID, utils.CallerFromInteraction(i))
	if !res.OK {
		respondEphemeral(b, s, i, resultContent(res))
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{statusEmbed(res.Status)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.Logger.Warnw("failed to respond to interaction", "error", err)
	}
}

// HandleCleanupNow handles /auction cleanup-now. The pass can take a while
// because deletions are paced, so the reply is deferred.
func HandleCleanupNow(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.Logger.Warnw("failed to defer interaction", "error", err)
		return
	}

	go func() {
		res := b.Engine.Control.ReapNow(b.Context(), i.GuildID, utils.CallerFromInteraction(i))
		audit(i, "cleanup_now", res)
		content := resultContent(res)
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
			b.Logger.Warnw("failed to edit deferred response", "error", err)
		}
	}()
}

// HandlePanel handles /auction panel: an ephemeral status view with buttons.
func HandlePanel(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	res := b.Engine.Control.Status(b.Context(), i.GuildID, utils.CallerFromInteraction(i))
	if !res.OK {
		respondEphemeral(b, s, i, resultContent(res))
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{statusEmbed(res.Status)},
			Components: panelComponents(res.Status),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.Logger.Warnw("failed to send control panel", "error", err)
	}
}

// HandleComponent handles presses on the control panel buttons. Each button
// runs the same operation as its subcommand and then redraws the panel.
func HandleComponent(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := i.MessageComponentData().CustomID
	if !strings.HasPrefix(id, "auction:") {
		return
	}
	ctx := b.Context()
	caller := utils.CallerFromInteraction(i)
	control := b.Engine.Control

	if id == ButtonCleanup {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
		if err != nil {
			b.Logger.Warnw("failed to defer panel update", "error", err)
			return
		}
		go func() {
			res := control.ReapNow(ctx, i.GuildID, caller)
			audit(i, "cleanup_now", res)
			edit := panelEdit(resultContent(res), control.Status(ctx, i.GuildID, caller))
			if _, err := s.InteractionResponseEdit(i.Interaction, edit); err != nil {
				b.Logger.Warnw("failed to update panel", "error", err)
			}
		}()
		return
	}

	var res auction.Result
	switch id {
	case ButtonStatus:
		res = control.Status(ctx, i.GuildID, caller)
	case ButtonToggleDeletion:
		res = control.ToggleThreadDeletion(ctx, i.GuildID, caller)
		audit(i, "toggle_thread_deletion", res)
	case ButtonToggleConfirmation:
		res = control.ToggleConfirmation(ctx, i.GuildID, caller)
		audit(i, "toggle_confirmation", res)
	default:
		respondEphemeral(b, s, i, msgUnknownCommand)
		return
	}
	if !res.OK {
		respondEphemeral(b, s, i, resultContent(res))
		return
	}

	content := ""
	if id != ButtonStatus {
		content = resultContent(res)
	}
	status := control.Status(ctx, i.GuildID, caller)
	data := &discordgo.InteractionResponseData{Content: content}
	if status.OK {
		data.Embeds = []*discordgo.MessageEmbed{statusEmbed(status.Status)}
		data.Components = panelComponents(status.Status)
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
	if err != nil {
		b.Logger.Warnw("failed to update panel", "error", err)
	}
}

func panelEdit(content string, status auction.Result) *discordgo.WebhookEdit {
	edit := &discordgo.WebhookEdit{Content: &content}
	if status.OK {
		embeds := []*discordgo.MessageEmbed{statusEmbed(status.Status)}
		components := panelComponents(status.Status)
		edit.Embeds = &embeds
		edit.Components = &components
	}
	return edit
}

// audit mirrors successful mutations to the admin log channel.
func audit(i *discordgo.InteractionCreate, operation string, res auction.Result) {
	if !res.OK {
		return
	}
	if res.Sweep == nil && !res.Changed {
		return
	}
	caller := utils.CallerFromInteraction(i)
	utils.Info("auction", operation, fmt.Sprintf("guild %s by <@%s>: %s", i.GuildID, caller.UserID, res.Message))
}

func enabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

func statusEmbed(r *models.StatusReport) *discordgo.MessageEmbed {
	channels := "None"
	if len(r.AuctionChannelIDs) > 0 {
		mentions := make([]string, len(r.AuctionChannelIDs))
		for i, id := range r.AuctionChannelIDs {
			mentions[i] = "<#" + id + ">"
		}
		channels = strings.Join(mentions, "\n")
	}
	return &discordgo.MessageEmbed{
		Title: "🔨 Auction System",
		Color: 0xf1c40f,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Auction channels", Value: channels},
			{Name: "Active auctions", Value: fmt.Sprint(r.ActiveAuctions), Inline: true},
			{Name: "Tracked replies", Value: fmt.Sprint(r.ActiveReplies), Inline: true},
			{Name: "Delete thread on expiry", Value: enabled(r.DeleteThreadOnExpire), Inline: true},
			{Name: "Confirmation message", Value: enabled(r.SendConfirmation), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: auction.FooterTag},
	}
}

func panelComponents(r *models.StatusReport) []discordgo.MessageComponent {
	toggleStyle := func(on bool) discordgo.ButtonStyle {
		if on {
			return discordgo.SuccessButton
		}
		return discordgo.SecondaryButton
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Refresh", Style: discordgo.PrimaryButton, CustomID: ButtonStatus},
			discordgo.Button{Label: "Clean up now", Style: discordgo.DangerButton, CustomID: ButtonCleanup},
			discordgo.Button{Label: "Thread deletion: " + enabled(r.DeleteThreadOnExpire), Style: toggleStyle(r.DeleteThreadOnExpire), CustomID: ButtonToggleDeletion},
			discordgo.Button{Label: "Confirmation: " + enabled(r.SendConfirmation), Style: toggleStyle(r.SendConfirmation), CustomID: ButtonToggleConfirmation},
		}},
	}
}

// HandlePing handles the logic for the /ping command.
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
}

package auction

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = Caller{UserID: "600000000000000001"}

func TestControlRequiresAuthorization(t *testing.T) {
	h := newHarness(t)
	h.engine.Control.auth = denyAll{}
	ctx := context.Background()
	text := ChannelRef{ID: auctionChan, GuildID: guildOne, Type: discordgo.ChannelTypeGuildText}

	results := []Result{
		h.engine.Control.AddChannel(ctx, guildOne, admin, text),
		h.engine.Control.RemoveChannel(ctx, guildOne, admin, auctionChan),
		h.engine.Control.ToggleThreadDeletion(ctx, guildOne, admin),
		h.engine.Control.ToggleConfirmation(ctx, guildOne, admin),
		h.engine.Control.Status(ctx, guildOne, admin),
		h.engine.Control.ReapNow(ctx, guildOne, admin),
	}
	for _, res := range results {
		assert.False(t, res.OK)
		assert.Equal(t, ReasonForbidden, res.Reason)
	}

	// Nothing was written.
	_, err := os.Stat(h.store.GuildDir(guildOne))
	assert.True(t, os.IsNotExist(err))
}

func TestControlOutsideGuild(t *testing.T) {
	h := newHarness(t)
	res := h.engine.Control.Status(context.Background(), "", admin)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonNoGuild, res.Reason)
}

func TestAddChannel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.engine.Control.AddChannel(ctx, guildOne, admin, ChannelRef{ID: auctionChan, GuildID: guildOne, Type: discordgo.ChannelTypeGuildText})
	require.True(t, res.OK)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{auctionChan}, res.Config.AuctionChannelIDs)

	again := h.engine.Control.AddChannel(ctx, guildOne, admin, ChannelRef{ID: auctionChan, GuildID: guildOne, Type: discordgo.ChannelTypeGuildText})
	require.True(t, again.OK)
	assert.False(t, again.Changed)
	assert.Equal(t, []string{auctionChan}, again.Config.AuctionChannelIDs)

	news := h.engine.Control.AddChannel(ctx, guildOne, admin, ChannelRef{ID: otherChan, Type: discordgo.ChannelTypeGuildNews})
	require.True(t, news.OK)
	assert.Equal(t, []string{auctionChan, otherChan}, news.Config.AuctionChannelIDs)

	// The config survives a restart.
	cfg, err := h.store.ReadGuildConfig(guildOne)
	require.NoError(t, err)
	assert.Equal(t, []string{auctionChan, otherChan}, cfg.AuctionChannelIDs)
}

func TestAddChannelRejectsInvalidChannels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := map[string]ChannelRef{
		"voice channel":  {ID: auctionChan, Type: discordgo.ChannelTypeGuildVoice},
		"thread":         {ID: auctionChan, Type: discordgo.ChannelTypeGuildPublicThread},
		"forum":          {ID: auctionChan, Type: discordgo.ChannelTypeGuildForum},
		"other guild":    {ID: auctionChan, GuildID: guildTwo, Type: discordgo.ChannelTypeGuildText},
		"missing id":     {Type: discordgo.ChannelTypeGuildText},
		"category":       {ID: auctionChan, Type: discordgo.ChannelTypeGuildCategory},
		"direct message": {ID: auctionChan, Type: discordgo.ChannelTypeDM},
	}
	for name, ch := range tests {
		t.Run(name, func(t *testing.T) {
			res := h.engine.Control.AddChannel(ctx, guildOne, admin, ch)
			assert.False(t, res.OK)
			assert.Equal(t, ReasonInvalidChannel, res.Reason)
		})
	}
	cfg, err := h.registry.Get(guildOne)
	require.NoError(t, err)
	assert.Empty(t, cfg.AuctionChannelIDs)
}

func TestRemoveChannel(t *testing.T) {
	h := newHarness(t)
	h.enableChannel(guildOne, auctionChan)
	h.enableChannel(guildOne, otherChan)
	ctx := context.Background()

	res := h.engine.Control.RemoveChannel(ctx, guildOne, admin, auctionChan)
	require.True(t, res.OK)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{otherChan}, res.Config.AuctionChannelIDs)

	again := h.engine.Control.RemoveChannel(ctx, guildOne, admin, auctionChan)
	require.True(t, again.OK)
	assert.False(t, again.Changed)

	// New posts in the removed channel are no longer promoted.
	m := userMessage(guildOne, auctionChan, h.platform.post(auctionChan))
	assert.Equal(t, ActionDrop, h.engine.Dispatcher.OnMessageCreate(ctx, m))
}

func TestRemovedChannelKeepsExistingTimers(t *testing.T) {
	h := newHarness(t)
	h.enableChannel(guildOne, auctionChan)
	post := h.postAuction(guildOne, auctionChan)
	require.True(t, h.engine.Control.RemoveChannel(context.Background(), guildOne, admin, auctionChan).OK)

	h.advance(DefaultRetention + time.Minute)
	res, err := h.engine.Reaper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.AuctionsReaped)
	assert.True(t, h.auction(guildOne, post.ID).IsDeleted)
}

func TestToggleThreadDeletionRewritesLiveAuctions(t *testing.T) {
	h := newHarness(t)
	h.enableChannel(guildOne, auctionChan)
	live := h.postAuction(guildOne, auctionChan)
	done := h.postAuction(guildOne, auctionChan)
	require.NoError(t, h.engine.Dispatcher.OnMessageDelete(context.Background(), guildOne, auctionChan, done.ID))
	ctx := context.Background()

	off := h.engine.Control.ToggleThreadDeletion(ctx, guildOne, admin)
	require.True(t, off.OK)
	assert.False(t, off.Config.DeleteThreadOnExpire)
	assert.False(t, h.auction(guildOne, live.ID).DeleteThreadOnExpire)
	assert.True(t, h.auction(guildOne, done.ID).DeleteThreadOnExpire)

	on := h.engine.Control.ToggleThreadDeletion(ctx, guildOne, admin)
	require.True(t, on.OK)
	assert.True(t, on.Config.DeleteThreadOnExpire)
	assert.True(t, h.auction(guildOne, live.ID).DeleteThreadOnExpire)

	cfg, err := h.store.ReadGuildConfig(guildOne)
	require.NoError(t, err)
	assert.True(t, cfg.DeleteThreadOnExpire)
}

func TestToggleConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.engine.Control.ToggleConfirmation(ctx, guildOne, admin)
	require.True(t, res.OK)
	assert.False(t, res.Config.SendConfirmation)

	res = h.engine.Control.ToggleConfirmation(ctx, guildOne, admin)
	require.True(t, res.OK)
	assert.True(t, res.Config.SendConfirmation)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	empty := h.engine.Control.Status(ctx, guildOne, admin)
	require.True(t, empty.OK)
	require.NotNil(t, empty.Status)
	assert.Zero(t, empty.Status.ActiveAuctions)
	assert.True(t, empty.Status.SendConfirmation)
	assert.True(t, empty.Status.DeleteThreadOnExpire)
	assert.False(t, h.store.HasGuild(guildOne))

	h.enableChannel(guildOne, auctionChan)
	post := h.postAuction(guildOne, auctionChan)
	h.bid(guildOne, post.ID)
	h.bid(guildOne, post.ID)
	h.postAuction(guildOne, auctionChan)

	res := h.engine.Control.Status(ctx, guildOne, admin)
	require.True(t, res.OK)
	assert.Equal(t, 2, res.Status.ActiveAuctions)
	assert.Equal(t, 2, res.Status.ActiveReplies)
	assert.Equal(t, []string{auctionChan}, res.Status.AuctionChannelIDs)
}

func TestReapNow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	nothing := h.engine.Control.ReapNow(ctx, guildOne, admin)
	require.True(t, nothing.OK)
	assert.Zero(t, nothing.Sweep.AuctionsReaped)

	h.enableChannel(guildOne, auctionChan)
	h.enableChannel(guildTwo, otherChan)
	one := h.postAuction(guildOne, auctionChan)
	two := h.postAuction(guildTwo, otherChan)
	h.advance(DefaultRetention + time.Minute)

	res := h.engine.Control.ReapNow(ctx, guildOne, admin)
	require.True(t, res.OK)
	assert.Equal(t, 1, res.Sweep.AuctionsReaped)
	assert.True(t, h.auction(guildOne, one.ID).IsDeleted)
	// Only the calling guild is swept.
	assert.False(t, h.auction(guildTwo, two.ID).IsDeleted)
}

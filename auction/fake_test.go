package auction

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"auction-bot/database"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

const (
	guildOne    = "100000000000000001"
	guildTwo    = "100000000000000002"
	auctionChan = "200000000000000001"
	otherChan   = "200000000000000002"
	botID       = "900000000000000001"
)

// fakePlatform is an in-memory chat platform. Messages and threads that
// exist can be deleted once; deleting them again yields ErrNotFound.
type fakePlatform struct {
	mu     sync.Mutex
	nextID int64

	threads  map[string]*discordgo.Channel // thread id -> thread
	messages map[string]string             // message id -> channel id
	embeds   map[string][]*discordgo.MessageEmbed

	deletedMessages []string
	deletedThreads  []string
	reactions       []string
	suppressed      []string

	startErr      error
	embedErrAt    int // fail the n-th SendEmbed call (1-based); 0 disables
	embedCalls    int
	reactionErr   error
	suppressErr   error
	deleteMsgErr  map[string]error // message id -> scripted error
	deleteThrdErr map[string]error // thread id -> scripted error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:        700000000000000000,
		threads:       make(map[string]*discordgo.Channel),
		messages:      make(map[string]string),
		embeds:        make(map[string][]*discordgo.MessageEmbed),
		deleteMsgErr:  make(map[string]error),
		deleteThrdErr: make(map[string]error),
	}
}

func (f *fakePlatform) id() string {
	f.nextID++
	return strconv.FormatInt(f.nextID, 10)
}

// post registers a user message that exists on the platform.
func (f *fakePlatform) post(channelID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.messages[id] = channelID
	return id
}

func (f *fakePlatform) StartThread(ctx context.Context, channelID, messageID, name string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	th := &discordgo.Channel{ID: f.id(), ParentID: channelID, Name: name, Type: discordgo.ChannelTypeGuildPublicThread}
	f.threads[th.ID] = th
	return th, nil
}

func (f *fakePlatform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.embedErrAt > 0 && f.embedCalls == f.embedErrAt {
		return nil, fmt.Errorf("send embed: %w", ErrForbidden)
	}
	msg := &discordgo.Message{ID: f.id(), ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}}
	f.messages[msg.ID] = channelID
	f.embeds[channelID] = append(f.embeds[channelID], embed)
	return msg, nil
}

func (f *fakePlatform) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactionErr != nil {
		return f.reactionErr
	}
	f.reactions = append(f.reactions, messageID+":"+emoji)
	return nil
}

func (f *fakePlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteMsgErr[messageID]; ok {
		return err
	}
	ch, ok := f.messages[messageID]
	if !ok || ch != channelID {
		return fmt.Errorf("delete message %s: %w", messageID, ErrNotFound)
	}
	delete(f.messages, messageID)
	f.deletedMessages = append(f.deletedMessages, messageID)
	return nil
}

func (f *fakePlatform) DeleteThread(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteThrdErr[threadID]; ok {
		return err
	}
	if _, ok := f.threads[threadID]; !ok {
		return fmt.Errorf("delete thread %s: %w", threadID, ErrNotFound)
	}
	delete(f.threads, threadID)
	for id, ch := range f.messages {
		if ch == threadID {
			delete(f.messages, id)
		}
	}
	f.deletedThreads = append(f.deletedThreads, threadID)
	return nil
}

func (f *fakePlatform) SuppressEmbeds(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.suppressErr != nil {
		return f.suppressErr
	}
	f.suppressed = append(f.suppressed, messageID)
	return nil
}

func (f *fakePlatform) deletionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletedMessages) + len(f.deletedThreads)
}

func (f *fakePlatform) threadExists(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.threads[id]
	return ok
}

func (f *fakePlatform) messageExists(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.messages[id]
	return ok
}

type allowAll struct{}

func (allowAll) IsAdmin(string, Caller) bool { return true }

type denyAll struct{}

func (denyAll) IsAdmin(string, Caller) bool { return false }

type harness struct {
	t        *testing.T
	now      time.Time
	platform *fakePlatform
	store    *database.Store
	registry *database.Registry
	engine   *Engine
	sleeps   []time.Duration
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	return newHarnessAt(t, t.TempDir())
}

func newHarnessAt(t *testing.T, root string) *harness {
	t.Helper()
	store, err := database.NewStore(root, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{
		t:        t,
		now:      t0,
		platform: newFakePlatform(),
		store:    store,
		registry: database.NewRegistry(store, nil),
	}
	h.engine, err = New(Options{
		Registry:   h.registry,
		Platform:   h.platform,
		Authorizer: allowAll{},
		Clock:      func() time.Time { return h.now },
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return ctx.Err()
		},
	})
	require.NoError(t, err)
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *harness) enableChannel(guildID, channelID string) {
	h.t.Helper()
	res := h.engine.Control.AddChannel(context.Background(), guildID, Caller{UserID: "1"},
		ChannelRef{ID: channelID, GuildID: guildID, Type: discordgo.ChannelTypeGuildText})
	require.True(h.t, res.OK, res.Message)
}

func userMessage(guildID, channelID, id string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		GuildID:   guildID,
		ChannelID: channelID,
		Type:      discordgo.MessageTypeDefault,
		Author:    &discordgo.User{ID: "500000000000000001", Username: "seller", GlobalName: "Seller"},
	}
}

func replyTo(guildID, threadID, anchorID, id string) *discordgo.Message {
	m := userMessage(guildID, threadID, id)
	m.Type = discordgo.MessageTypeReply
	m.Author = &discordgo.User{ID: "500000000000000002", Username: "bidder"}
	m.MessageReference = &discordgo.MessageReference{MessageID: anchorID, ChannelID: threadID, GuildID: guildID}
	return m
}

// postAuction posts a message in channelID and runs it through the dispatcher.
func (h *harness) postAuction(guildID, channelID string) *discordgo.Message {
	h.t.Helper()
	m := userMessage(guildID, channelID, h.platform.post(channelID))
	require.Equal(h.t, ActionPromote, h.engine.Dispatcher.OnMessageCreate(context.Background(), m))
	return m
}

package app

import (
	"context"
	"errors"
	"testing"

	"boss_alert_bot/internal/domain/chat"
	"boss_alert_bot/internal/domain/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, store tracker.Store, m *fakeMessenger) *TrackerService {
	t.Helper()
	svc := NewTrackerService(store, m, testSchedule(t), []string{"🔔"}, "보스알림", testLogger())
	svc.now = clock(9, 55, 0)
	return svc
}

func TestEnsureCreatesWhenNothingStored(t *testing.T) {
	store := newMemStore()
	m := newFakeMessenger()
	svc := newTestTracker(t, store, m)

	msg, outcome, err := svc.Ensure(context.Background(), "g1", "c1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, outcome)
	require.Len(t, m.sent, 1)
	assert.Equal(t, m.sent[0].ID, msg.MessageID)
	assert.Equal(t, &tracker.Message{GuildID: "g1", ChannelID: "c1", MessageID: msg.MessageID}, store.record("g1"))
	assert.Equal(t, []string{"🔔"}, m.reactions[msg.MessageID])
	assert.Contains(t, m.sent[0].Content, "그루트킹")
}

func TestEnsureRecreatesMissingMessage(t *testing.T) {
	store := newMemStore(tracker.Message{GuildID: "g1", MessageID: "stale"})
	m := newFakeMessenger()
	svc := newTestTracker(t, store, m)

	msg, outcome, err := svc.Ensure(context.Background(), "g1", "c1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeRecreated, outcome)
	assert.NotEqual(t, "stale", msg.MessageID)
	assert.Equal(t, msg.MessageID, store.record("g1").MessageID)

	current, err := svc.Current(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, msg.MessageID, current.MessageID)
}

func TestEnsureRefreshesLiveMessage(t *testing.T) {
	store := newMemStore(tracker.Message{GuildID: "g1", MessageID: "live"})
	m := newFakeMessenger()
	m.seed("c1", "live", "old text")
	svc := newTestTracker(t, store, m)

	msg, outcome, err := svc.Ensure(context.Background(), "g1", "c1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeRefreshed, outcome)
	assert.Equal(t, "live", msg.MessageID)
	assert.Empty(t, m.sent)
	assert.Zero(t, store.sets)
	require.Len(t, m.edits, 1)
	assert.Contains(t, m.edits[0].Content, "다음 보스")
	assert.Equal(t, []string{"🔔"}, m.reactions["live"])
}

func TestEnsureKeepsGuildsApart(t *testing.T) {
	store := newMemStore(tracker.Message{GuildID: "gA", ChannelID: "cA", MessageID: "mA"})
	m := newFakeMessenger()
	m.seed("cA", "mA", "board A")
	svc := newTestTracker(t, store, m)
	ctx := context.Background()

	msgB, outcome, err := svc.Ensure(ctx, "gB", "cB")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "cB", msgB.ChannelID)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "cB", m.sent[0].ChannelID)
	assert.Empty(t, m.edits)

	assert.Equal(t, "mA", store.record("gA").MessageID)
	assert.Equal(t, msgB.MessageID, store.record("gB").MessageID)

	// Reactions on guild A's original tracker still count.
	roles := newTestRoleSync(m, svc)
	require.NoError(t, roles.HandleReactionAdded(ctx, chat.ReactionEvent{
		GuildID: "gA", ChannelID: "cA", MessageID: "mA", UserID: "u1", Emoji: "🔔",
	}))
	require.NoError(t, roles.HandleReactionAdded(ctx, chat.ReactionEvent{
		GuildID: "gB", ChannelID: "cB", MessageID: msgB.MessageID, UserID: "u2", Emoji: "🔔",
	}))
	assert.Equal(t, 2, m.grantCalls)

	// A guild's tracker id is not accepted from another guild.
	require.NoError(t, roles.HandleReactionAdded(ctx, chat.ReactionEvent{
		GuildID: "gB", ChannelID: "cB", MessageID: "mA", UserID: "u3", Emoji: "🔔",
	}))
	assert.Equal(t, 2, m.grantCalls)
}

func TestEnsureReportsMissingReactionsAsPartialSuccess(t *testing.T) {
	store := newMemStore()
	m := newFakeMessenger()
	m.reactErr = errors.New("missing permissions")
	svc := newTestTracker(t, store, m)

	msg, outcome, err := svc.Ensure(context.Background(), "g1", "c1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReactionsIncomplete)
	assert.Equal(t, OutcomeCreated, outcome)
	require.NotNil(t, msg)
	assert.Equal(t, msg.MessageID, store.record("g1").MessageID)
}

func TestEnsureSurfacesStoreReadError(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("401 unauthorized")
	m := newFakeMessenger()
	svc := newTestTracker(t, store, m)

	_, _, err := svc.Ensure(context.Background(), "g1", "c1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrReactionsIncomplete)
	assert.Empty(t, m.sent)
}

func TestEnsureSurfacesStoreWriteError(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("quota exceeded")
	m := newFakeMessenger()
	svc := newTestTracker(t, store, m)

	_, _, err := svc.Ensure(context.Background(), "g1", "c1")
	require.Error(t, err)

	store.setErr = nil
	current, err := svc.Current(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestEnsureSurfacesSendError(t *testing.T) {
	store := newMemStore()
	m := newFakeMessenger()
	m.sendErr = errors.New("missing access")
	svc := newTestTracker(t, store, m)

	_, _, err := svc.Ensure(context.Background(), "g1", "c1")
	assert.Error(t, err)
	assert.Nil(t, store.record("g1"))
}

func TestCurrentIsCachedPerGuild(t *testing.T) {
	store := newMemStore(
		tracker.Message{GuildID: "g1", MessageID: "t1"},
		tracker.Message{GuildID: "g2", MessageID: "t2"},
	)
	svc := newTestTracker(t, store, newFakeMessenger())

	for i := 0; i < 3; i++ {
		msg, err := svc.Current(context.Background(), "g1")
		require.NoError(t, err)
		assert.Equal(t, "t1", msg.MessageID)
	}
	msg, err := svc.Current(context.Background(), "g2")
	require.NoError(t, err)
	assert.Equal(t, "t2", msg.MessageID)
	assert.Equal(t, 2, store.gets)
}

func TestRefreshEditsEveryGuildBoard(t *testing.T) {
	store := newMemStore(
		tracker.Message{GuildID: "g1", ChannelID: "c1", MessageID: "t1"},
		tracker.Message{GuildID: "g2", MessageID: "t2"},
	)
	m := newFakeMessenger()
	m.channels = []chat.Target{{GuildID: "g1", ChannelID: "c1"}, {GuildID: "g2", ChannelID: "c2"}, {GuildID: "g3", ChannelID: "c3"}}
	m.seed("c1", "t1", "old")
	m.seed("c2", "t2", "old")
	svc := newTestTracker(t, store, m)

	require.NoError(t, svc.Refresh(context.Background()))

	require.Len(t, m.edits, 2)
	assert.Contains(t, m.edits[0].Content, "📢 다음 보스: **그루트킹** (10:00, 5분 후)")
	assert.Contains(t, m.edits[0].Content, "⏭️ 그 다음 보스: **위더** (10:10)")
	assert.Equal(t, "c2", m.edits[1].ChannelID)

	current, err := svc.Current(context.Background(), "g2")
	require.NoError(t, err)
	assert.Equal(t, "c2", current.ChannelID)
}

func TestRefreshToleratesMissingMessage(t *testing.T) {
	store := newMemStore(tracker.Message{GuildID: "g1", ChannelID: "c1", MessageID: "gone"})
	m := newFakeMessenger()
	m.channels = []chat.Target{{GuildID: "g1", ChannelID: "c1"}}
	svc := newTestTracker(t, store, m)

	assert.NoError(t, svc.Refresh(context.Background()))
	assert.Empty(t, m.sent)
}

func TestRefreshWithoutTracker(t *testing.T) {
	m := newFakeMessenger()
	m.channels = []chat.Target{{GuildID: "g1", ChannelID: "c1"}}
	svc := newTestTracker(t, newMemStore(), m)
	assert.NoError(t, svc.Refresh(context.Background()))
	assert.Empty(t, m.edits)
}

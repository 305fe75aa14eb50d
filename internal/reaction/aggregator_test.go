package reaction

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenchat/internal/backend"
	"tokenchat/internal/channel"
	"tokenchat/internal/kvstore"
)

const testKey = channel.Key("pumpfun-So11111111111111111111111111111111111111112")

func newTestBackend(t *testing.T) *backend.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kvstore.NewHandler(kvstore.NewMemoryStore(), nil, logger).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL)
}

// seedMessage writes a bare message document for reactions to land on.
func seedMessage(t *testing.T, client *backend.Client, id string) {
	t.Helper()
	msg := backend.Message{ID: id, Author: "alice", Text: "hi", CreatedAt: 1}
	patch := map[string]backend.Message{id: msg}
	require.NoError(t, client.PatchJSON(context.Background(), backend.MessagesPath(testKey), patch))
}

func readMessage(t *testing.T, client *backend.Client, id string) backend.Message {
	t.Helper()
	var msgs map[string]backend.Message
	require.NoError(t, client.GetJSON(context.Background(), backend.MessagesPath(testKey), &msgs))
	return msgs[id]
}

func TestToggle_OnThenOff(t *testing.T) {
	client := newTestBackend(t)
	agg := NewAggregator(client)
	ctx := context.Background()
	seedMessage(t, client, "m1")

	on, err := agg.Toggle(ctx, testKey, "m1", "👍", "bob")
	require.NoError(t, err)
	assert.True(t, on)

	msg := readMessage(t, client, "m1")
	assert.Equal(t, 1, msg.Reactions["👍"])
	assert.Equal(t, []string{"👍"}, msg.ReactionOrder)
	assert.True(t, msg.UserReactions["bob"]["👍"])

	on, err = agg.Toggle(ctx, testKey, "m1", "👍", "bob")
	require.NoError(t, err)
	assert.False(t, on)

	msg = readMessage(t, client, "m1")
	assert.Equal(t, 0, msg.Reactions["👍"])
	assert.Empty(t, msg.ReactionOrder)
	assert.False(t, msg.UserReactions["bob"]["👍"])
}

func TestToggle_CountsAreIndependentPerUser(t *testing.T) {
	client := newTestBackend(t)
	agg := NewAggregator(client)
	ctx := context.Background()
	seedMessage(t, client, "m1")

	_, err := agg.Toggle(ctx, testKey, "m1", "❤️", "bob")
	require.NoError(t, err)
	_, err = agg.Toggle(ctx, testKey, "m1", "❤️", "carol")
	require.NoError(t, err)

	msg := readMessage(t, client, "m1")
	assert.Equal(t, 2, msg.Reactions["❤️"])

	// Bob withdrawing leaves carol's reaction standing.
	_, err = agg.Toggle(ctx, testKey, "m1", "❤️", "bob")
	require.NoError(t, err)

	msg = readMessage(t, client, "m1")
	assert.Equal(t, 1, msg.Reactions["❤️"])
	assert.Equal(t, []string{"❤️"}, msg.ReactionOrder)
}

func TestToggle_OrderIsFirstSeen(t *testing.T) {
	client := newTestBackend(t)
	agg := NewAggregator(client)
	ctx := context.Background()
	seedMessage(t, client, "m1")

	_, err := agg.Toggle(ctx, testKey, "m1", "👍", "bob")
	require.NoError(t, err)
	_, err = agg.Toggle(ctx, testKey, "m1", "❤️", "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"👍", "❤️"}, readMessage(t, client, "m1").ReactionOrder)

	// Dropping the thumbs-up removes it from the order but keeps the heart.
	_, err = agg.Toggle(ctx, testKey, "m1", "👍", "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"❤️"}, readMessage(t, client, "m1").ReactionOrder)
}

func TestToggle_UnknownEmojiIsNoOp(t *testing.T) {
	client := newTestBackend(t)
	agg := NewAggregator(client)
	seedMessage(t, client, "m1")

	on, err := agg.Toggle(context.Background(), testKey, "m1", "🚀", "bob")
	require.NoError(t, err)
	assert.False(t, on)

	msg := readMessage(t, client, "m1")
	assert.Empty(t, msg.Reactions)
	assert.Empty(t, msg.UserReactions)
}

func TestSnapshot(t *testing.T) {
	client := newTestBackend(t)
	agg := NewAggregator(client)
	ctx := context.Background()
	seedMessage(t, client, "m1")

	view, err := agg.Snapshot(ctx, testKey, "m1")
	require.NoError(t, err)
	assert.Empty(t, view.Order)

	_, err = agg.Toggle(ctx, testKey, "m1", "👍", "bob")
	require.NoError(t, err)
	_, err = agg.Toggle(ctx, testKey, "m1", "❤️", "carol")
	require.NoError(t, err)

	view, err = agg.Snapshot(ctx, testKey, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"👍", "❤️"}, view.Order)
	assert.Equal(t, 1, view.Counts["👍"])
	assert.Equal(t, 1, view.Counts["❤️"])
}

func TestIsAllowed(t *testing.T) {
	for _, emoji := range AllowedEmojis {
		assert.True(t, IsAllowed(emoji))
	}
	assert.False(t, IsAllowed("🚀"))
	assert.False(t, IsAllowed(""))
}

func TestFingerprint_Deterministic(t *testing.T) {
	msgs := map[string]backend.Message{
		"a": {Reactions: map[string]int{"👍": 2}, ReactionOrder: []string{"👍"}},
		"b": {Reactions: map[string]int{"❤️": 1}, ReactionOrder: []string{"❤️"}},
	}
	assert.Equal(t, Fingerprint(msgs), Fingerprint(msgs))
}

func TestFingerprint_ChangesWithVisibleState(t *testing.T) {
	before := map[string]backend.Message{
		"a": {Reactions: map[string]int{"👍": 1}, ReactionOrder: []string{"👍"}},
	}
	after := map[string]backend.Message{
		"a": {Reactions: map[string]int{"👍": 2}, ReactionOrder: []string{"👍"}},
	}
	assert.NotEqual(t, Fingerprint(before), Fingerprint(after))
}

func TestFingerprint_IgnoresInvisibleFields(t *testing.T) {
	before := map[string]backend.Message{"a": {Text: "one"}}
	after := map[string]backend.Message{"a": {Text: "two"}}
	assert.Equal(t, Fingerprint(before), Fingerprint(after))
}

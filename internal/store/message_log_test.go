package store

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

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

func TestAppendAndRead(t *testing.T) {
	log := NewLog(newTestBackend(t))
	ctx := context.Background()

	sent, err := log.Append(ctx, testKey, "alice", "gm")
	require.NoError(t, err)
	require.NotEmpty(t, sent.ID)

	msgs, err := log.Read(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[sent.ID].Author)
	assert.Equal(t, "gm", msgs[sent.ID].Text)
}

func TestRead_EmptyChannel(t *testing.T) {
	log := NewLog(newTestBackend(t))

	msgs, err := log.Read(context.Background(), testKey)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRead_FiltersExpiredMessages(t *testing.T) {
	now := time.Now()
	log := NewLog(newTestBackend(t), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	sent, err := log.Append(ctx, testKey, "alice", "fades away")
	require.NoError(t, err)

	// Just inside the five-minute window the message is still live.
	now = now.Add(MessageTTL - time.Second)
	msgs, err := log.Read(ctx, testKey)
	require.NoError(t, err)
	assert.Contains(t, msgs, sent.ID)

	// Just past it the read hides the entry even though it is still stored.
	now = now.Add(2 * time.Second)
	msgs, err = log.Read(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEvictExpired_RemovesOnlyExpired(t *testing.T) {
	now := time.Now()
	log := NewLog(newTestBackend(t), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	old, err := log.Append(ctx, testKey, "alice", "old")
	require.NoError(t, err)

	now = now.Add(MessageTTL + time.Second)
	fresh, err := log.Append(ctx, testKey, "bob", "fresh")
	require.NoError(t, err)

	removed, err := log.EvictExpired(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	msgs, err := log.Read(ctx, testKey)
	require.NoError(t, err)
	assert.NotContains(t, msgs, old.ID)
	assert.Contains(t, msgs, fresh.ID)
}

func TestEvictExpired_NoWriteWhenNothingExpired(t *testing.T) {
	log := NewLog(newTestBackend(t))
	ctx := context.Background()

	_, err := log.Append(ctx, testKey, "alice", "still fresh")
	require.NoError(t, err)

	removed, err := log.EvictExpired(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSameKeys(t *testing.T) {
	a := map[string]backend.Message{"1": {}, "2": {}}
	b := map[string]backend.Message{"2": {Text: "different payload"}, "1": {}}
	c := map[string]backend.Message{"1": {}, "3": {}}

	assert.True(t, SameKeys(a, b), "payload changes do not change the key set")
	assert.False(t, SameKeys(a, c))
	assert.False(t, SameKeys(a, map[string]backend.Message{"1": {}}))
	assert.True(t, SameKeys(nil, map[string]backend.Message{}))
}

func TestSorted_ByCreationThenID(t *testing.T) {
	msgs := map[string]backend.Message{
		"b": {ID: "b", CreatedAt: 200},
		"c": {ID: "c", CreatedAt: 100},
		"a": {ID: "a", CreatedAt: 200},
	}

	out := Sorted(msgs)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "a", out[1].ID, "same-millisecond sends order by ID")
	assert.Equal(t, "b", out[2].ID)
}

func TestNewMessageID_Format(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id := NewMessageID(now)

	assert.Regexp(t, regexp.MustCompile(`^\d{13}-[0-9a-f]{8}$`), id)
	assert.Equal(t, now, ParseMessageTime(id))
}

func TestNewMessageID_DistinctWithinSameMillisecond(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	assert.NotEqual(t, NewMessageID(now), NewMessageID(now))
}

func TestParseMessageTime_Unrecognized(t *testing.T) {
	assert.True(t, ParseMessageTime("not-a-timestamp").IsZero())
}

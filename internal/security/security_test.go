package security

import (
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	return NewContext(slog.Default(), opts...)
}

func TestSanitizeUsername_CanonicalForm(t *testing.T) {
	canonical := regexp.MustCompile(`^[a-z0-9_-]*$`)

	cases := []string{
		"Alice",
		"  Bob_99  ",
		"w@iLd-ch*ars!",
		"<b>charlie</b>",
		"ThisUsernameIsWayTooLongForTheLimit",
		"日本語とemoji🎉",
	}
	for _, raw := range cases {
		got := SanitizeUsername(raw)
		assert.True(t, canonical.MatchString(got), "raw=%q got=%q", raw, got)
		assert.LessOrEqual(t, len([]rune(got)), MaxUsernameLength, "raw=%q", raw)
	}

	assert.Equal(t, "alice", SanitizeUsername("Alice!!"))
}

func TestValidateUsername(t *testing.T) {
	ctx := newTestContext(t)

	name, err := ctx.ValidateUsername("  Trader_42 ")
	require.NoError(t, err)
	assert.Equal(t, "trader_42", name)

	_, err = ctx.ValidateUsername("x")
	assert.True(t, IsCode(err, CodeInvalidUsername), "single char after sanitization")

	_, err = ctx.ValidateUsername("!!")
	assert.True(t, IsCode(err, CodeInvalidUsername), "nothing left after sanitization")

	for _, reserved := range []string{"admin", "Moderator", "SYSTEM", "phantomview"} {
		_, err = ctx.ValidateUsername(reserved)
		assert.True(t, IsCode(err, CodeInvalidUsername), "reserved name %q", reserved)
	}
}

func TestValidateMessage_EmptyAfterTrim(t *testing.T) {
	ctx := newTestContext(t)
	_, err := ctx.ValidateMessage("   ", "alice")
	assert.True(t, IsCode(err, CodeEmptyMessage))
}

func TestValidateMessage_TooLong(t *testing.T) {
	ctx := newTestContext(t)
	_, err := ctx.ValidateMessage(strings.Repeat("a", 201), "alice")
	assert.True(t, IsCode(err, CodeMessageTooLong))

	msg, err := ctx.ValidateMessage(strings.Repeat("a", 4), "alice")
	require.NoError(t, err)
	assert.Equal(t, "aaaa", msg)
}

func TestValidateMessage_ScriptBlockStripped(t *testing.T) {
	ctx := newTestContext(t)
	msg, err := ctx.ValidateMessage("<script>alert(1)</script>hello", "alice")
	require.NoError(t, err, "script body must be removed before classification")
	assert.Equal(t, "hello", msg)
}

func TestValidateMessage_UnsafeContent(t *testing.T) {
	ctx := newTestContext(t)

	unsafe := []string{
		"send me your seed phrase",
		"huge airdrop, claim now",
		"javascript:doThing",
		"../../etc/passwd",
		"spaaaaaam",                // 5-run
		"THIS IS VERY LOUD INDEED", // caps ratio
		"hit me up on telegram",
	}
	for _, raw := range unsafe {
		_, err := ctx.ValidateMessage(raw, "alice")
		assert.True(t, IsCode(err, CodeUnsafeContent), "raw=%q err=%v", raw, err)
	}
}

func TestValidateMessage_RateLimit(t *testing.T) {
	now := time.Now()
	ctx := newTestContext(t, WithClock(func() time.Time { return now }))

	for i := 0; i < MaxMessagesPerWindow; i++ {
		_, err := ctx.ValidateMessage("gm", "alice")
		require.NoError(t, err, "message %d within the window must pass", i+1)
	}

	_, err := ctx.ValidateMessage("gm", "alice")
	assert.True(t, IsCode(err, CodeRateLimited), "51st message in the window")

	// A different user is unaffected.
	_, err = ctx.ValidateMessage("gm", "bob")
	assert.NoError(t, err)

	// Once the window slides past the burst, alice may speak again.
	now = now.Add(RateLimitWindow + time.Second)
	_, err = ctx.ValidateMessage("gm", "alice")
	assert.NoError(t, err)
}

func TestAllowReaction_RateLimit(t *testing.T) {
	now := time.Now()
	ctx := newTestContext(t, WithClock(func() time.Time { return now }))

	for i := 0; i < MaxReactionsPerWindow; i++ {
		require.NoError(t, ctx.AllowReaction("alice"))
	}
	err := ctx.AllowReaction("alice")
	assert.True(t, IsCode(err, CodeRateLimited))
}

func TestValidateCAAddress(t *testing.T) {
	ctx := newTestContext(t)

	addr, err := ctx.ValidateCAAddress(" So11111111111111111111111111111111111111112 ")
	require.NoError(t, err)
	assert.Equal(t, "So11111111111111111111111111111111111111112", addr)

	_, err = ctx.ValidateCAAddress("tooshort")
	assert.True(t, IsCode(err, CodeInvalidFormat))

	_, err = ctx.ValidateCAAddress(strings.Repeat("A", 45))
	assert.True(t, IsCode(err, CodeInvalidFormat))
}

func TestBlockedUser(t *testing.T) {
	ctx := newTestContext(t)

	ctx.BlockUser("mallory", "spam")
	assert.True(t, ctx.IsBlocked("mallory"))

	_, err := ctx.ValidateMessage("gm", "mallory")
	assert.True(t, IsCode(err, CodeUserBlocked))
	assert.True(t, IsCode(ctx.AllowReaction("mallory"), CodeUserBlocked))

	ctx.UnblockUser("mallory")
	assert.False(t, ctx.IsBlocked("mallory"))
	_, err = ctx.ValidateMessage("gm", "mallory")
	assert.NoError(t, err)
}

func TestCleanupExpired_DropsIdleWindows(t *testing.T) {
	now := time.Now()
	ctx := newTestContext(t, WithClock(func() time.Time { return now }))

	_, err := ctx.ValidateMessage("gm", "alice")
	require.NoError(t, err)
	require.NoError(t, ctx.AllowReaction("bob"))
	assert.Equal(t, 2, ctx.Stats().RateLimitEntries)

	now = now.Add(RateLimitWindow + time.Second)
	ctx.CleanupExpired()
	assert.Equal(t, 0, ctx.Stats().RateLimitEntries)
}

type captureRecorder struct {
	events []string
}

func (r *captureRecorder) Record(event string, details map[string]string) {
	r.events = append(r.events, event)
}

func TestRecorderReceivesEvents(t *testing.T) {
	rec := &captureRecorder{}
	ctx := newTestContext(t, WithRecorder(rec))

	ctx.BlockUser("mallory", "spam")
	_, _ = ctx.ValidateMessage("free airdrop claim now", "alice")

	assert.Contains(t, rec.events, "USER_BLOCKED")
	assert.Contains(t, rec.events, "CONTENT_REJECTED")
}

func TestHashSensitive_NeverPlaintext(t *testing.T) {
	h := hashSensitive("secret content")
	assert.NotContains(t, h, "secret")
	assert.Len(t, h, 8)
	assert.Equal(t, h, hashSensitive("secret content"))
}

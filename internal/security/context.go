package security

import (
	"log/slog"
	"regexp"
	"sync"
	"time"
)

// Recorder persists security events. The slog trail always exists; a
// Recorder is an optional second sink (the audit store).
type Recorder interface {
	Record(event string, details map[string]string)
}

// Context is the injectable security state for one process: rate-limit
// windows, the blocked-user set, and the event sinks. Validation calls take
// it by reference; there is no package-level singleton.
type Context struct {
	logger   *slog.Logger
	limiter  *slidingLimiter
	recorder Recorder
	now      func() time.Time

	mu      sync.Mutex
	blocked map[string]struct{}
	closed  bool
}

// Option configures a Context.
type Option func(*Context)

// WithRecorder attaches a persistent event sink.
func WithRecorder(r Recorder) Option {
	return func(c *Context) { c.recorder = r }
}

// WithClock overrides the time source. Tests use this to move the rate-limit
// window without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// NewContext creates a security context with empty rate-limit and
// blocked-user state.
func NewContext(logger *slog.Logger, opts ...Option) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{
		logger:  logger,
		limiter: newSlidingLimiter(RateLimitWindow),
		now:     time.Now,
		blocked: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateUsername sanitizes raw and returns the canonical username, or a
// ValidationError with CodeInvalidUsername.
func (c *Context) ValidateUsername(raw string) (string, error) {
	username := SanitizeUsername(raw)

	if len(username) < MinUsernameLength {
		c.logEvent("INVALID_USERNAME", map[string]string{"reason": "too_short", "input": hashSensitive(raw)})
		return "", newValidationError(CodeInvalidUsername, "username must be at least 2 characters")
	}
	if containsSuspiciousContent(username) {
		c.logEvent("INVALID_USERNAME", map[string]string{"reason": "suspicious", "input": hashSensitive(raw)})
		return "", newValidationError(CodeInvalidUsername, "username contains invalid characters")
	}
	if isReservedUsername(username) {
		c.logEvent("INVALID_USERNAME", map[string]string{"reason": "reserved", "input": hashSensitive(raw)})
		return "", newValidationError(CodeInvalidUsername, "username is reserved")
	}

	return username, nil
}

// ValidateMessage sanitizes raw message text, applies the content policy and
// the per-user message rate limit, and returns the text safe to store.
func (c *Context) ValidateMessage(raw, userID string) (string, error) {
	if c.IsBlocked(userID) {
		c.logEvent("BLOCKED_USER_REJECTED", map[string]string{"userId": hashSensitive(userID)})
		return "", newValidationError(CodeUserBlocked, "user is blocked")
	}

	message := SanitizeMessage(raw)

	if message == "" {
		return "", newValidationError(CodeEmptyMessage, "message cannot be empty")
	}
	if len([]rune(message)) > MaxMessageLength {
		return "", newValidationError(CodeMessageTooLong, "message must be 200 characters or less")
	}
	if containsSuspiciousContent(message) {
		c.logEvent("CONTENT_REJECTED", map[string]string{
			"userId":  hashSensitive(userID),
			"message": hashSensitive(raw),
		})
		return "", newValidationError(CodeUnsafeContent, "message contains potentially unsafe content")
	}
	if !c.limiter.Allow(userID, ActionMessage, c.now()) {
		c.logEvent("RATE_LIMITED", map[string]string{"userId": hashSensitive(userID), "action": string(ActionMessage)})
		return "", newValidationError(CodeRateLimited, "please slow down - too many messages")
	}

	return message, nil
}

// ValidateCAAddress sanitizes raw and checks it against the Solana base58
// address length heuristic.
var caAddressRe = regexp.MustCompile(`^[A-Za-z0-9]{32,44}$`)

func (c *Context) ValidateCAAddress(raw string) (string, error) {
	address := SanitizeCAAddress(raw)
	if !caAddressRe.MatchString(address) {
		return "", newValidationError(CodeInvalidFormat, "invalid contract address format")
	}
	return address, nil
}

// AllowReaction applies the blocked-user check and the per-user reaction
// rate limit.
func (c *Context) AllowReaction(userID string) error {
	if c.IsBlocked(userID) {
		c.logEvent("BLOCKED_USER_REJECTED", map[string]string{"userId": hashSensitive(userID)})
		return newValidationError(CodeUserBlocked, "user is blocked")
	}
	if !c.limiter.Allow(userID, ActionReaction, c.now()) {
		c.logEvent("RATE_LIMITED", map[string]string{"userId": hashSensitive(userID), "action": string(ActionReaction)})
		return newValidationError(CodeRateLimited, "please slow down - too many reactions")
	}
	return nil
}

// BlockUser adds userID to the blocked set.
func (c *Context) BlockUser(userID, reason string) {
	c.mu.Lock()
	c.blocked[userID] = struct{}{}
	c.mu.Unlock()
	c.logEvent("USER_BLOCKED", map[string]string{"userId": hashSensitive(userID), "reason": reason})
}

// UnblockUser removes userID from the blocked set. No-op if absent.
func (c *Context) UnblockUser(userID string) {
	c.mu.Lock()
	delete(c.blocked, userID)
	c.mu.Unlock()
	c.logEvent("USER_UNBLOCKED", map[string]string{"userId": hashSensitive(userID)})
}

// IsBlocked reports whether userID is in the blocked set.
func (c *Context) IsBlocked(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.blocked[userID]
	return ok
}

// Stats summarizes the security state for the admin surface.
type Stats struct {
	BlockedUsers     int `json:"blockedUsers"`
	RateLimitEntries int `json:"rateLimitEntries"`
}

func (c *Context) Stats() Stats {
	c.mu.Lock()
	blocked := len(c.blocked)
	c.mu.Unlock()
	return Stats{
		BlockedUsers:     blocked,
		RateLimitEntries: c.limiter.size(),
	}
}

// CleanupExpired does a full sweep of the rate-limit windows. The chat
// surface drives this every 5 minutes.
func (c *Context) CleanupExpired() {
	c.limiter.Sweep(c.now())
}

// Close marks the context disposed. Validation after Close still works (the
// state is plain maps), but the disposal is logged so leaked contexts show
// up in the trail.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.logger.Info("security context disposed")
}

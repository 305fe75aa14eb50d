// Package chat is the synchronization core: it ties the validation gate,
// presence tracker, message log, and reaction aggregator together under a
// set of polling timers, and exposes the command/signal interface front
// ends drive.
//
// There is no push channel from the backend; every piece of shared state is
// reconciled by periodic polling. All timers belong to one open Surface and
// die with it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tokenchat/internal/backend"
	"tokenchat/internal/channel"
	"tokenchat/internal/presence"
	"tokenchat/internal/reaction"
	"tokenchat/internal/security"
	"tokenchat/internal/store"
)

// ErrClosed is returned by commands issued against a closed surface.
var ErrClosed = errors.New("chat surface is closed")

// Intervals are the poll cadences of one surface.
type Intervals struct {
	Messages      time.Duration // fetch + render messages
	Presence      time.Duration // refresh online users
	Reactions     time.Duration // refresh reaction displays
	Janitor       time.Duration // evict expired messages
	SecuritySweep time.Duration // rate-limit window cleanup
}

// DefaultIntervals returns the production cadences.
func DefaultIntervals() Intervals {
	return Intervals{
		Messages:      500 * time.Millisecond,
		Presence:      3 * time.Second,
		Reactions:     3 * time.Second,
		Janitor:       60 * time.Second,
		SecuritySweep: 5 * time.Minute,
	}
}

// Core bundles the collaborators a surface needs. One Core serves any
// number of surfaces; the security context is deliberately shared so rate
// limits follow the user across channels.
type Core struct {
	Security  *security.Context
	Tracker   *presence.Tracker
	Log       *store.Log
	Reactions *reaction.Aggregator
	Logger    *slog.Logger
	Intervals Intervals
}

// NewCore wires a Core from a backend client with default cadences.
func NewCore(client *backend.Client, sec *security.Context, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{
		Security:  sec,
		Tracker:   presence.NewTracker(client),
		Log:       store.NewLog(client),
		Reactions: reaction.NewAggregator(client),
		Logger:    logger,
		Intervals: DefaultIntervals(),
	}
}

// Surface is one open chat window over one channel. Commands come in
// through SendMessage/ToggleReaction, state changes go out through Events,
// and Close tears everything down.
type Surface struct {
	core     *Core
	key      channel.Key
	username string
	events   Events

	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	closed      bool
	lastMsgs    map[string]backend.Message
	lastFinger  string
	lastOnline  []string
	havePrev    bool
}

// OpenSurface validates the inputs, claims the username in the channel, and
// starts the poll loop. The error is a *security.ValidationError for bad
// input, presence.ErrUsernameTaken for a join conflict, or a backend error.
func (c *Core) OpenSurface(ctx context.Context, site, token, rawUsername string, events Events) (*Surface, error) {
	username, err := c.Security.ValidateUsername(rawUsername)
	if err != nil {
		return nil, err
	}
	address, err := c.Security.ValidateCAAddress(token)
	if err != nil {
		return nil, err
	}
	key := channel.DeriveKey(site, address)
	if key == "" {
		return nil, fmt.Errorf("empty channel key for site %q", site)
	}

	if err := c.Tracker.Join(ctx, key, username); err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &Surface{
		core:     c,
		key:      key,
		username: username,
		events:   events,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	c.Logger.Info("chat surface opened", "channel", key, "username", username)
	go s.run(loopCtx)

	return s, nil
}

// run is the scheduling backbone: every cadence is a ticker, every tick is
// a full read/reconcile against the backend, and a tick failure never stops
// the loop.
func (s *Surface) run(ctx context.Context) {
	defer close(s.done)

	iv := s.core.Intervals
	messages := time.NewTicker(iv.Messages)
	presenceTick := time.NewTicker(iv.Presence)
	reactions := time.NewTicker(iv.Reactions)
	janitor := time.NewTicker(iv.Janitor)
	sweep := time.NewTicker(iv.SecuritySweep)
	defer func() {
		messages.Stop()
		presenceTick.Stop()
		reactions.Stop()
		janitor.Stop()
		sweep.Stop()
	}()

	// Prime the displays before the first tick fires.
	s.pollMessages(ctx)
	s.pollPresence(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-messages.C:
			s.pollMessages(ctx)
		case <-presenceTick.C:
			s.pollPresence(ctx)
		case <-reactions.C:
			s.pollReactions(ctx)
		case <-janitor.C:
			s.runJanitor(ctx)
		case <-sweep.C:
			s.core.Security.CleanupExpired()
		}
	}
}

// pollMessages re-renders only when the message-ID set changed.
func (s *Surface) pollMessages(ctx context.Context) {
	msgs, err := s.core.Log.Read(ctx, s.key)
	if err != nil {
		s.warn("fetch messages", err)
		return
	}

	s.mu.Lock()
	changed := !s.havePrev || !store.SameKeys(s.lastMsgs, msgs)
	if changed {
		s.lastMsgs = msgs
		s.lastFinger = reaction.Fingerprint(msgs)
		s.havePrev = true
	}
	live := !s.closed
	s.mu.Unlock()

	if changed && live {
		s.events.MessagesChanged(store.Sorted(msgs))
	}
}

// pollReactions re-renders when visible reaction state moved while the
// message set stayed put; the message tick owns set changes.
func (s *Surface) pollReactions(ctx context.Context) {
	msgs, err := s.core.Log.Read(ctx, s.key)
	if err != nil {
		s.warn("refresh reactions", err)
		return
	}

	finger := reaction.Fingerprint(msgs)

	s.mu.Lock()
	changed := s.havePrev && store.SameKeys(s.lastMsgs, msgs) && finger != s.lastFinger
	if changed {
		s.lastMsgs = msgs
		s.lastFinger = finger
	}
	live := !s.closed
	s.mu.Unlock()

	if changed && live {
		s.events.MessagesChanged(store.Sorted(msgs))
	}
}

// pollPresence propagates only order-insensitive set changes.
func (s *Surface) pollPresence(ctx context.Context) {
	online, err := s.core.Tracker.List(ctx, s.key)
	if err != nil {
		s.warn("refresh presence", err)
		return
	}

	s.mu.Lock()
	changed := !presence.Equal(s.lastOnline, online)
	if changed {
		s.lastOnline = online
	}
	live := !s.closed
	s.mu.Unlock()

	if changed && live {
		s.events.PresenceChanged(presence.Count(s.username, online), online)
	}
}

func (s *Surface) runJanitor(ctx context.Context) {
	removed, err := s.core.Log.EvictExpired(ctx, s.key)
	if err != nil {
		s.warn("evict expired messages", err)
		return
	}
	if removed > 0 {
		s.core.Logger.Debug("expired messages evicted", "channel", s.key, "count", removed)
	}
}

// warn logs a transient failure and surfaces it to the front end. The poll
// cadence is unaffected; the next tick retries naturally.
func (s *Surface) warn(op string, err error) {
	s.core.Logger.Warn("poll tick failed", "op", op, "channel", s.key, "error", err)

	s.mu.Lock()
	live := !s.closed
	s.mu.Unlock()
	if live {
		s.events.Warning(fmt.Errorf("%s: %w", op, err))
	}
}

// SendMessage validates and appends a message, then refreshes the display
// immediately rather than waiting for the next tick.
func (s *Surface) SendMessage(ctx context.Context, text string) error {
	if s.isClosed() {
		return ErrClosed
	}
	message, err := s.core.Security.ValidateMessage(text, s.username)
	if err != nil {
		return err
	}
	if _, err := s.core.Log.Append(ctx, s.key, s.username, message); err != nil {
		return err
	}
	s.pollMessages(ctx)
	return nil
}

// ToggleReaction flips the local user's reaction on a message. Unknown
// emojis are silent no-ops; the reaction rate limit applies before any
// backend write.
func (s *Surface) ToggleReaction(ctx context.Context, messageID, emoji string) error {
	if s.isClosed() {
		return ErrClosed
	}
	if !reaction.IsAllowed(emoji) {
		return nil
	}
	if err := s.core.Security.AllowReaction(s.username); err != nil {
		return err
	}
	if _, err := s.core.Reactions.Toggle(ctx, s.key, messageID, emoji, s.username); err != nil {
		return err
	}
	s.pollReactions(ctx)
	return nil
}

// ReactionSnapshot reads the current reaction display state of one
// message.
func (s *Surface) ReactionSnapshot(ctx context.Context, messageID string) (reaction.View, error) {
	if s.isClosed() {
		return reaction.View{}, ErrClosed
	}
	return s.core.Reactions.Snapshot(ctx, s.key, messageID)
}

// Blur records an implicit leave (tab hidden, window blur). Polling
// continues; only the presence entry is withdrawn. Last write wins against
// a racing Focus.
func (s *Surface) Blur(ctx context.Context) {
	if s.isClosed() {
		return
	}
	if err := s.core.Tracker.Leave(ctx, s.key, s.username); err != nil {
		s.warn("presence leave", err)
	}
}

// Focus records an implicit re-join (tab visible, window focus).
func (s *Surface) Focus(ctx context.Context) {
	if s.isClosed() {
		return
	}
	if err := s.core.Tracker.Heartbeat(ctx, s.key, s.username); err != nil {
		s.warn("presence heartbeat", err)
	}
}

// Username returns the validated username the surface joined with.
func (s *Surface) Username() string { return s.username }

// ChannelKey returns the channel the surface is bound to.
func (s *Surface) ChannelKey() channel.Key { return s.key }

func (s *Surface) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close is the only cancellation signal: it stops every timer, drops any
// response still in flight, and makes a best-effort leave write. Idempotent.
func (s *Surface) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done

	// The loop context is gone; the leave write gets its own short one.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.core.Tracker.Leave(ctx, s.key, s.username); err != nil {
		s.core.Logger.Warn("leave on close failed", "channel", s.key, "error", err)
	}

	s.core.Logger.Info("chat surface closed", "channel", s.key, "username", s.username)
}

// Package presence tracks which usernames are currently online in a
// channel. Liveness is best-effort: entries are written on join/focus,
// removed on leave/blur/unload, and peers polling the same collection see
// changes within one poll interval. Nothing here is linearizable; the last
// write wins.
package presence

import (
	"context"
	"errors"
	"sort"
	"time"

	"tokenchat/internal/backend"
	"tokenchat/internal/channel"
)

// ErrUsernameTaken is returned by Join when another live entry already
// holds the requested username. The check is read-then-write: two clients
// joining in the same poll window can both pass it, which is accepted.
var ErrUsernameTaken = errors.New("username already taken")

// Tracker performs presence reads and writes for one backend.
type Tracker struct {
	client *backend.Client
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(client *backend.Client, opts ...Option) *Tracker {
	t := &Tracker{client: client, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Join registers username in the channel. Fails with ErrUsernameTaken when
// the name is already present.
func (t *Tracker) Join(ctx context.Context, key channel.Key, username string) error {
	online, err := t.List(ctx, key)
	if err != nil {
		return err
	}
	for _, name := range online {
		if name == username {
			return ErrUsernameTaken
		}
	}
	return t.write(ctx, key, username)
}

// Heartbeat refreshes the caller's entry (tab-visible / window-focus
// re-join). No uniqueness check: the name was claimed at Join time.
func (t *Tracker) Heartbeat(ctx context.Context, key channel.Key, username string) error {
	return t.write(ctx, key, username)
}

func (t *Tracker) write(ctx context.Context, key channel.Key, username string) error {
	entry := backend.PresenceEntry{
		Username:  username,
		Timestamp: t.now().UnixMilli(),
	}
	return t.client.PutJSON(ctx, backend.OnlineUserPath(key, username), entry)
}

// Leave removes the caller's entry. Idempotent; removing an absent entry is
// not an error.
func (t *Tracker) Leave(ctx context.Context, key channel.Key, username string) error {
	return t.client.Delete(ctx, backend.OnlineUserPath(key, username))
}

// List returns the distinct online usernames in the channel, sorted.
func (t *Tracker) List(ctx context.Context, key channel.Key) ([]string, error) {
	var entries map[string]backend.PresenceEntry
	if err := t.client.GetJSON(ctx, backend.OnlineUsersPath(key), &entries); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Username == "" {
			continue
		}
		if _, dup := seen[entry.Username]; dup {
			continue
		}
		seen[entry.Username] = struct{}{}
		names = append(names, entry.Username)
	}
	sort.Strings(names)
	return names, nil
}

// Count computes the displayed online count: self always counts, plus every
// other distinct username. A stale read that drops the caller's own entry
// therefore never shows zero.
func Count(self string, online []string) int {
	count := 1
	for _, name := range online {
		if name != self {
			count++
		}
	}
	return count
}

// Equal reports whether two username sets match, order-insensitively. The
// poller uses this to suppress no-op UI updates.
func Equal(prev, next []string) bool {
	if len(prev) != len(next) {
		return false
	}
	set := make(map[string]struct{}, len(prev))
	for _, name := range prev {
		set[name] = struct{}{}
	}
	for _, name := range next {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}

// Package store is the channel message log: append, snapshot reads with
// authoritative TTL filtering, and the compaction sweep that prunes expired
// entries out of the backend.
package store

import (
	"context"
	"sort"
	"time"

	"tokenchat/internal/backend"
	"tokenchat/internal/channel"
)

// MessageTTL is how long a message lives after creation.
const MessageTTL = 5 * time.Minute

// Log reads and writes one backend's message collections.
type Log struct {
	client *backend.Client
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithTTL overrides the message TTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Log) { l.ttl = ttl }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

func NewLog(client *backend.Client, opts ...Option) *Log {
	l := &Log{client: client, ttl: MessageTTL, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append creates a message and merge-inserts it into the channel's
// collection. The returned message carries the generated ID.
func (l *Log) Append(ctx context.Context, key channel.Key, author, text string) (backend.Message, error) {
	now := l.now()
	msg := backend.Message{
		ID:        NewMessageID(now),
		Author:    author,
		Text:      text,
		CreatedAt: now.UnixMilli(),
	}
	patch := map[string]backend.Message{msg.ID: msg}
	if err := l.client.PatchJSON(ctx, backend.MessagesPath(key), patch); err != nil {
		return backend.Message{}, err
	}
	return msg, nil
}

// Read returns the channel's live messages. Expiry is enforced here on
// every read; the periodic sweep only shrinks stored state.
func (l *Log) Read(ctx context.Context, key channel.Key) (map[string]backend.Message, error) {
	var msgs map[string]backend.Message
	if err := l.client.GetJSON(ctx, backend.MessagesPath(key), &msgs); err != nil {
		return nil, err
	}
	return l.filterLive(msgs), nil
}

// EvictExpired rewrites the stored collection without its expired entries.
// Returns how many entries were pruned. A write only happens when something
// actually expired.
func (l *Log) EvictExpired(ctx context.Context, key channel.Key) (int, error) {
	var msgs map[string]backend.Message
	if err := l.client.GetJSON(ctx, backend.MessagesPath(key), &msgs); err != nil {
		return 0, err
	}

	live := l.filterLive(msgs)
	removed := len(msgs) - len(live)
	if removed == 0 {
		return 0, nil
	}

	if err := l.client.PutJSON(ctx, backend.MessagesPath(key), live); err != nil {
		return 0, err
	}
	return removed, nil
}

func (l *Log) filterLive(msgs map[string]backend.Message) map[string]backend.Message {
	now := l.now()
	live := make(map[string]backend.Message, len(msgs))
	for id, msg := range msgs {
		if msg.Age(now) <= l.ttl {
			live[id] = msg
		}
	}
	return live
}

// SameKeys reports whether two snapshots contain the same message IDs,
// order-insensitively. The render path only rebuilds when this is false.
func SameKeys(prev, next map[string]backend.Message) bool {
	if len(prev) != len(next) {
		return false
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			return false
		}
	}
	return true
}

// Sorted flattens a snapshot into display order: creation time, then ID as
// the tiebreak for same-millisecond sends.
func Sorted(msgs map[string]backend.Message) []backend.Message {
	out := make([]backend.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

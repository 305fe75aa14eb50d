// Package reaction maintains per-message reaction state: a per-user toggle
// bit per emoji, a derived per-emoji total, and the first-seen display
// order.
//
// Toggle is a multi-step read-modify-write with no transactional isolation.
// Two users flipping the same emoji concurrently can leave the total off by
// one, including below zero; the periodic display refresh reconciles against
// whatever the backend holds, so the drift is transient and benign for this
// domain.
package reaction

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"tokenchat/internal/backend"
	"tokenchat/internal/channel"
)

// AllowedEmojis is the full reaction vocabulary.
var AllowedEmojis = []string{"❤️", "👍", "👎"}

// IsAllowed reports whether emoji is in the fixed reaction set.
func IsAllowed(emoji string) bool {
	for _, allowed := range AllowedEmojis {
		if emoji == allowed {
			return true
		}
	}
	return false
}

// Aggregator performs reaction reads and writes for one backend.
type Aggregator struct {
	client *backend.Client
}

func NewAggregator(client *backend.Client) *Aggregator {
	return &Aggregator{client: client}
}

// Toggle flips username's reaction bit for emoji on a message and adjusts
// the derived total and display order. Returns whether the reaction is now
// on. An emoji outside the allowed set is a silent no-op.
func (a *Aggregator) Toggle(ctx context.Context, key channel.Key, messageID, emoji, username string) (bool, error) {
	if !IsAllowed(emoji) {
		return false, nil
	}

	// Step 1: read and flip the per-user bit.
	userPath := backend.UserReactionPath(key, messageID, username, emoji)
	var current bool
	if err := a.client.GetJSON(ctx, userPath, &current); err != nil {
		return false, err
	}
	nowOn := !current
	if err := a.client.PutJSON(ctx, userPath, nowOn); err != nil {
		return false, err
	}

	// Step 2: adjust the derived total. No zero floor: a concurrent toggle
	// can drive it negative, and the refresh cycle self-corrects.
	countPath := backend.ReactionCountPath(key, messageID, emoji)
	var count int
	if err := a.client.GetJSON(ctx, countPath, &count); err != nil {
		return nowOn, err
	}
	if nowOn {
		count++
	} else {
		count--
	}
	if err := a.client.PutJSON(ctx, countPath, count); err != nil {
		return nowOn, err
	}

	// Step 3: keep the first-seen display order in sync with the total.
	if err := a.updateOrder(ctx, key, messageID, emoji, count); err != nil {
		return nowOn, err
	}

	return nowOn, nil
}

// View is the display state of one message's reactions.
type View struct {
	Counts map[string]int
	Order  []string
}

// Snapshot reads the current reaction display state of one message. A
// message with no reactions (or no message at all) yields an empty view.
func (a *Aggregator) Snapshot(ctx context.Context, key channel.Key, messageID string) (View, error) {
	view := View{Counts: make(map[string]int)}
	if err := a.client.GetJSON(ctx, backend.ReactionOrderPath(key, messageID), &view.Order); err != nil {
		return View{}, err
	}
	for _, emoji := range view.Order {
		var count int
		if err := a.client.GetJSON(ctx, backend.ReactionCountPath(key, messageID, emoji), &count); err != nil {
			return View{}, err
		}
		view.Counts[emoji] = count
	}
	return view, nil
}

func (a *Aggregator) updateOrder(ctx context.Context, key channel.Key, messageID, emoji string, count int) error {
	orderPath := backend.ReactionOrderPath(key, messageID)
	var order []string
	if err := a.client.GetJSON(ctx, orderPath, &order); err != nil {
		return err
	}

	idx := -1
	for i, e := range order {
		if e == emoji {
			idx = i
			break
		}
	}

	switch {
	case count > 0 && idx == -1:
		order = append(order, emoji)
	case count <= 0 && idx != -1:
		order = append(order[:idx], order[idx+1:]...)
	default:
		return nil
	}

	return a.client.PutJSON(ctx, orderPath, order)
}

// Fingerprint summarizes the visible reaction state of a snapshot. The
// display refresh compares fingerprints to decide whether anything changed
// since the last tick. Traversal is sorted so equal states always produce
// equal fingerprints.
func Fingerprint(msgs map[string]backend.Message) string {
	ids := make([]string, 0, len(msgs))
	for id := range msgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		msg := msgs[id]
		b.WriteString(id)
		b.WriteByte('{')
		for _, emoji := range msg.ReactionOrder {
			b.WriteString(emoji)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(msg.Reactions[emoji]))
			b.WriteByte(',')
		}
		b.WriteByte('}')
	}
	return b.String()
}

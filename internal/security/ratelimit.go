package security

import (
	"sync"
	"time"
)

// Action names a rate-limited activity. The window is shared per
// (user, action) pair.
type Action string

const (
	ActionMessage  Action = "message"
	ActionReaction Action = "reaction"
)

const (
	// RateLimitWindow is the sliding window width.
	RateLimitWindow = 120 * time.Second

	MaxMessagesPerWindow  = 50
	MaxReactionsPerWindow = 20
)

// slidingLimiter tracks per-(user, action) action timestamps. State is
// process-lifetime only and never persisted. Entries outside the window are
// pruned lazily on every check; Sweep does a full pass so idle keys do not
// accumulate between checks.
type slidingLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	actions map[string][]time.Time
}

func newSlidingLimiter(window time.Duration) *slidingLimiter {
	return &slidingLimiter{
		window:  window,
		actions: make(map[string][]time.Time),
	}
}

func limitFor(action Action) int {
	if action == ActionReaction {
		return MaxReactionsPerWindow
	}
	return MaxMessagesPerWindow
}

// Allow records the action and returns true, or returns false without
// recording when the (user, action) window is already full.
func (l *slidingLimiter) Allow(userID string, action Action, now time.Time) bool {
	key := userID + "_" + string(action)

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := pruneOlder(l.actions[key], now.Add(-l.window))
	if len(valid) >= limitFor(action) {
		l.actions[key] = valid
		return false
	}

	l.actions[key] = append(valid, now)
	return true
}

// Sweep prunes every tracked key and drops keys whose window emptied.
func (l *slidingLimiter) Sweep(now time.Time) {
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, timestamps := range l.actions {
		valid := pruneOlder(timestamps, cutoff)
		if len(valid) == 0 {
			delete(l.actions, key)
		} else {
			l.actions[key] = valid
		}
	}
}

func (l *slidingLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}

// pruneOlder keeps timestamps at or after cutoff. Timestamps are appended in
// order, so the first kept index bounds the result.
func pruneOlder(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0:0]
	for _, ts := range timestamps {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

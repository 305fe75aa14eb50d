package chat

import "tokenchat/internal/backend"

// Events is the outbound signal surface a front end subscribes to. The core
// knows nothing about rendering; a web overlay, a terminal, or a test
// harness all plug in here.
//
// Callbacks are invoked from the surface's poll goroutine and must not
// block; a slow consumer stalls the poll cadence.
type Events interface {
	// PresenceChanged fires when the online-user set changes. The count
	// always includes the local user, even when a stale backend read
	// momentarily drops their entry.
	PresenceChanged(count int, usernames []string)

	// MessagesChanged fires when the rendered message list should be
	// rebuilt: the message-ID set changed, or visible reaction state did.
	// Messages arrive in display order.
	MessagesChanged(messages []backend.Message)

	// Warning reports a transient, non-fatal failure (backend hiccup).
	// The poll loop has already moved on; this is display-only.
	Warning(err error)
}

// NopEvents discards all signals. Embed it to implement only part of
// Events.
type NopEvents struct{}

func (NopEvents) PresenceChanged(int, []string)     {}
func (NopEvents) MessagesChanged([]backend.Message) {}
func (NopEvents) Warning(error)                     {}

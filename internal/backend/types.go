package backend

import "time"

// Message is the wire form of one chat message, stored under
// chats/{channelKey}/activeMessages/{id}. The message log exclusively owns
// these records; reaction updates are the only mutation after creation.
type Message struct {
	ID            string                     `json:"id"`
	Author        string                     `json:"author"`
	Text          string                     `json:"text"`
	CreatedAt     int64                      `json:"createdAt"` // ms epoch
	Reactions     map[string]int             `json:"reactions,omitempty"`
	ReactionOrder []string                   `json:"reactionOrder,omitempty"`
	UserReactions map[string]map[string]bool `json:"userReactions,omitempty"`
}

// Age returns how long ago the message was created.
func (m Message) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(m.CreatedAt))
}

// PresenceEntry is the wire form of one online user, stored under
// chats/{channelKey}/onlineUsers/{userKey}.
type PresenceEntry struct {
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"` // ms epoch of the last liveness write
}

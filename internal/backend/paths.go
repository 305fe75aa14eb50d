package backend

import (
	"fmt"
	"net/url"

	"tokenchat/internal/channel"
)

// Path builders for the hierarchical keyspace of the document store. Every
// addressable node is a ".json" document; emoji and usernames are path
// segments and must be escaped.

func MessagesPath(key channel.Key) string {
	return fmt.Sprintf("/chats/%s/activeMessages.json", key)
}

func ReactionCountPath(key channel.Key, messageID, emoji string) string {
	return fmt.Sprintf("/chats/%s/activeMessages/%s/reactions/%s.json",
		key, url.PathEscape(messageID), url.PathEscape(emoji))
}

func UserReactionPath(key channel.Key, messageID, username, emoji string) string {
	return fmt.Sprintf("/chats/%s/activeMessages/%s/userReactions/%s/%s.json",
		key, url.PathEscape(messageID), url.PathEscape(username), url.PathEscape(emoji))
}

func ReactionOrderPath(key channel.Key, messageID string) string {
	return fmt.Sprintf("/chats/%s/activeMessages/%s/reactionOrder.json",
		key, url.PathEscape(messageID))
}

func OnlineUsersPath(key channel.Key) string {
	return fmt.Sprintf("/chats/%s/onlineUsers.json", key)
}

func OnlineUserPath(key channel.Key, userKey string) string {
	return fmt.Sprintf("/chats/%s/onlineUsers/%s.json", key, url.PathEscape(userKey))
}

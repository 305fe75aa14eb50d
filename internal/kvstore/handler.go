package kvstore

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tokenchat/internal/backend"
)

// BlockList answers whether a username is banned from writing. The admin
// surface maintains it; message merges consult it.
type BlockList interface {
	IsBlocked(username string) bool
}

// Handler translates the hierarchical "*.json" REST dialect onto a Store.
// Whole-collection and whole-entry operations map directly; sub-document
// addressing (reaction counters, per-user reaction flags, reaction order)
// is resolved here by rewriting the owning message document. That rewrite is
// a read-modify-write without isolation, which is exactly the consistency
// level the chat clients are built to tolerate.
type Handler struct {
	store   Store
	blocked BlockList // may be nil
	logger  *slog.Logger
}

func NewHandler(store Store, blocked BlockList, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, blocked: blocked, logger: logger}
}

// RegisterRoutes mounts the document routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	chats := r.Group("/chats/:key")
	{
		chats.GET("/activeMessages.json", h.getMessages)
		chats.PATCH("/activeMessages.json", h.mergeMessages)
		chats.PUT("/activeMessages.json", h.replaceMessages)

		msg := chats.Group("/activeMessages/:id")
		{
			msg.GET("/reactions/:emoji", h.getReactionCount)
			msg.PUT("/reactions/:emoji", h.putReactionCount)
			msg.GET("/reactionOrder.json", h.getReactionOrder)
			msg.PUT("/reactionOrder.json", h.putReactionOrder)
			msg.GET("/userReactions/:user/:emoji", h.getUserReaction)
			msg.PUT("/userReactions/:user/:emoji", h.putUserReaction)
		}

		chats.GET("/onlineUsers.json", h.getOnline)
		chats.PUT("/onlineUsers/:user", h.putOnline)
		chats.DELETE("/onlineUsers/:user", h.deleteOnline)
	}
}

// docParam returns a path parameter with its ".json" document suffix
// removed.
func docParam(c *gin.Context, name string) string {
	return strings.TrimSuffix(c.Param(name), ".json")
}

func (h *Handler) getMessages(c *gin.Context) {
	docs, err := h.store.GetMessages(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.storeError(c, "get messages", err)
		return
	}
	if len(docs) == 0 {
		// Missing collections read as null, Firebase-style.
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) mergeMessages(c *gin.Context) {
	var docs map[string]json.RawMessage
	if err := c.ShouldBindJSON(&docs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document body"})
		return
	}
	if h.blocked != nil {
		for _, doc := range docs {
			var msg backend.Message
			if json.Unmarshal(doc, &msg) == nil && msg.Author != "" && h.blocked.IsBlocked(msg.Author) {
				c.JSON(http.StatusForbidden, gin.H{"error": "author is blocked"})
				return
			}
		}
	}
	if err := h.store.MergeMessages(c.Request.Context(), c.Param("key"), docs); err != nil {
		h.storeError(c, "merge messages", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) replaceMessages(c *gin.Context) {
	var docs map[string]json.RawMessage
	if err := c.ShouldBindJSON(&docs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document body"})
		return
	}
	// PUT null clears the collection.
	if docs == nil {
		docs = map[string]json.RawMessage{}
	}
	if err := h.store.ReplaceMessages(c.Request.Context(), c.Param("key"), docs); err != nil {
		h.storeError(c, "replace messages", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// message fetches and decodes the owning message for a sub-document
// operation. found=false means the message does not exist (evicted or never
// written), which sub-document reads surface as null and writes as 404.
func (h *Handler) message(c *gin.Context) (backend.Message, bool) {
	var msg backend.Message
	doc, err := h.store.GetMessage(c.Request.Context(), c.Param("key"), c.Param("id"))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.storeError(c, "get message", err)
		}
		return msg, false
	}
	if err := json.Unmarshal(doc, &msg); err != nil {
		h.logger.Error("corrupt message document", "channel", c.Param("key"), "id", c.Param("id"), "error", err)
		return msg, false
	}
	return msg, true
}

// writeMessage persists a rewritten message document.
func (h *Handler) writeMessage(c *gin.Context, msg backend.Message) bool {
	doc, err := json.Marshal(msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode failure"})
		return false
	}
	docs := map[string]json.RawMessage{c.Param("id"): doc}
	if err := h.store.MergeMessages(c.Request.Context(), c.Param("key"), docs); err != nil {
		h.storeError(c, "write message", err)
		return false
	}
	return true
}

func (h *Handler) getReactionCount(c *gin.Context) {
	msg, ok := h.message(c)
	if !ok {
		if !c.Writer.Written() {
			c.JSON(http.StatusOK, nil)
		}
		return
	}
	c.JSON(http.StatusOK, msg.Reactions[docParam(c, "emoji")])
}

func (h *Handler) putReactionCount(c *gin.Context) {
	var count int
	if err := c.ShouldBindJSON(&count); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reaction count must be an integer"})
		return
	}
	msg, ok := h.message(c)
	if !ok {
		if !c.Writer.Written() {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		}
		return
	}
	if msg.Reactions == nil {
		msg.Reactions = make(map[string]int)
	}
	msg.Reactions[docParam(c, "emoji")] = count
	if h.writeMessage(c, msg) {
		c.JSON(http.StatusOK, count)
	}
}

func (h *Handler) getReactionOrder(c *gin.Context) {
	msg, ok := h.message(c)
	if !ok {
		if !c.Writer.Written() {
			c.JSON(http.StatusOK, nil)
		}
		return
	}
	c.JSON(http.StatusOK, msg.ReactionOrder)
}

func (h *Handler) putReactionOrder(c *gin.Context) {
	var order []string
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reaction order must be a string list"})
		return
	}
	msg, ok := h.message(c)
	if !ok {
		if !c.Writer.Written() {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		}
		return
	}
	msg.ReactionOrder = order
	if h.writeMessage(c, msg) {
		c.JSON(http.StatusOK, order)
	}
}

func (h *Handler) getUserReaction(c *gin.Context) {
	msg, ok := h.message(c)
	if !ok {
		if !c.Writer.Written() {
			c.JSON(http.StatusOK, nil)
		}
		return
	}
	c.JSON(http.StatusOK, msg.UserReactions[docParam(c, "user")][docParam(c, "emoji")])
}

func (h *Handler) putUserReaction(c *gin.Context) {
	var value bool
	if err := c.ShouldBindJSON(&value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user reaction must be a boolean"})
		return
	}
	msg, ok := h.message(c)
	if !ok {
		if !c.Writer.Written() {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		}
		return
	}
	user := docParam(c, "user")
	if msg.UserReactions == nil {
		msg.UserReactions = make(map[string]map[string]bool)
	}
	if msg.UserReactions[user] == nil {
		msg.UserReactions[user] = make(map[string]bool)
	}
	msg.UserReactions[user][docParam(c, "emoji")] = value
	if h.writeMessage(c, msg) {
		c.JSON(http.StatusOK, value)
	}
}

func (h *Handler) getOnline(c *gin.Context) {
	docs, err := h.store.GetOnline(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.storeError(c, "get online users", err)
		return
	}
	if len(docs) == 0 {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) putOnline(c *gin.Context) {
	var entry backend.PresenceEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid presence entry"})
		return
	}
	doc, err := json.Marshal(entry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode failure"})
		return
	}
	if err := h.store.SetOnline(c.Request.Context(), c.Param("key"), docParam(c, "user"), doc); err != nil {
		h.storeError(c, "set online user", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) deleteOnline(c *gin.Context) {
	if err := h.store.DeleteOnline(c.Request.Context(), c.Param("key"), docParam(c, "user")); err != nil {
		h.storeError(c, "delete online user", err)
		return
	}
	c.JSON(http.StatusOK, nil)
}

func (h *Handler) storeError(c *gin.Context, op string, err error) {
	h.logger.Error("store operation failed", "op", op, "channel", c.Param("key"), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
}

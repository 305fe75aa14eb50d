// Package kvadmin is chatd's moderation surface: admin login, the blocked
// user list, security stats, the audit trail, and forced retention sweeps.
// Everything except login sits behind the JWT middleware.
package kvadmin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tokenchat/internal/audit"
	"tokenchat/internal/auth"
	"tokenchat/internal/backend"
	"tokenchat/internal/kvstore"
	"tokenchat/internal/security"
)

type Handler struct {
	auth       *auth.Service
	sec        *security.Context
	store      kvstore.Store
	audit      *audit.Store // nil when audit persistence is disabled
	messageTTL time.Duration
	logger     *slog.Logger
}

func NewHandler(authSvc *auth.Service, sec *security.Context, store kvstore.Store, auditStore *audit.Store, messageTTL time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:       authSvc,
		sec:        sec,
		store:      store,
		audit:      auditStore,
		messageTTL: messageTTL,
		logger:     logger,
	}
}

// RegisterRoutes mounts /admin.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	admin := r.Group("/admin")
	admin.POST("/login", h.login)

	protected := admin.Group("", auth.Middleware(h.auth))
	{
		protected.GET("/stats", h.stats)
		protected.POST("/blocked/:user", h.blockUser)
		protected.DELETE("/blocked/:user", h.unblockUser)
		protected.GET("/events", h.events)
		protected.POST("/sweep/:key", h.sweep)
	}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.sec.Stats())
}

func (h *Handler) blockUser(c *gin.Context) {
	user := c.Param("user")
	reason := c.DefaultQuery("reason", "moderation")
	h.sec.BlockUser(user, reason)
	c.JSON(http.StatusOK, gin.H{"blocked": user})
}

func (h *Handler) unblockUser(c *gin.Context) {
	user := c.Param("user")
	h.sec.UnblockUser(user)
	c.JSON(http.StatusOK, gin.H{"unblocked": user})
}

func (h *Handler) events(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "audit persistence is not configured"})
		return
	}
	events, err := h.audit.Recent(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit query failed"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// sweep runs a server-side retention pass over one channel, independent of
// any client janitor. Clients filter expired entries on read anyway; this
// just shrinks stored state on demand.
func (h *Handler) sweep(c *gin.Context) {
	channelKey := c.Param("key")

	docs, err := h.store.GetMessages(c.Request.Context(), channelKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}

	now := time.Now()
	live := make(map[string]json.RawMessage, len(docs))
	for id, doc := range docs {
		var msg backend.Message
		if err := json.Unmarshal(doc, &msg); err != nil {
			// Corrupt entries are dropped by the sweep.
			continue
		}
		if msg.Age(now) <= h.messageTTL {
			live[id] = doc
		}
	}

	removed := len(docs) - len(live)
	if removed > 0 {
		if err := h.store.ReplaceMessages(c.Request.Context(), channelKey, live); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
			return
		}
	}

	h.logger.Info("admin sweep completed", "channel", channelKey, "removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed, "remaining": len(live)})
}

package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/atelierline/agency-backend/internal/auth"
	"github.com/atelierline/agency-backend/internal/notifications"
	"github.com/atelierline/agency-backend/internal/notifications/domain"
)

type Handler struct {
	repo *notifications.Repo
}

func New(repo *notifications.Repo) *Handler {
	return &Handler{repo: repo}
}

// Register mounts the recipient-owned notification routes.
func (h *Handler) Register(g gin.IRouter) {
	g.GET("", h.list)
	g.GET("/unread-count", h.unreadCount)
	g.POST("/:id/read", h.markRead)
}

func (h *Handler) list(c *gin.Context) {
	actor := auth.ActorFrom(c)

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := h.repo.ListForUser(c.Request.Context(), actor.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "notifications": items})
}

func (h *Handler) unreadCount(c *gin.Context) {
	actor := auth.ActorFrom(c)

	n, err := h.repo.UnreadCount(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "unread": n})
}

func (h *Handler) markRead(c *gin.Context) {
	actor := auth.ActorFrom(c)

	err := h.repo.MarkRead(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelierline/agency-backend/internal/auth"
	"github.com/atelierline/agency-backend/internal/campaigns"
)

type Handler struct {
	svc *campaigns.Service
}

func New(svc *campaigns.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the operator campaign routes.
func (h *Handler) Register(g gin.IRouter) {
	g.GET("/revival/preview", h.preview)
	g.POST("/revival/run", h.run)
	g.GET("/revival/last-run", h.lastRun)
}

type runReq struct {
	StalenessDays int `json:"staleness_days"`
}

func (h *Handler) preview(c *gin.Context) {
	actor := auth.ActorFrom(c)
	if !auth.CanRunCampaign(actor) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}

	staleness, ok := stalenessFromQuery(c)
	if !ok {
		return
	}

	n, err := h.svc.CountStale(c.Request.Context(), staleness)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stale_prospects": n})
}

func (h *Handler) run(c *gin.Context) {
	actor := auth.ActorFrom(c)
	if !auth.CanRunCampaign(actor) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}

	var req runReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	summary, err := h.svc.Run(c.Request.Context(), time.Duration(req.StalenessDays)*24*time.Hour, actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": summary})
}

func (h *Handler) lastRun(c *gin.Context) {
	actor := auth.ActorFrom(c)
	if !auth.CanRunCampaign(actor) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}

	rec, err := h.svc.LastRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, campaigns.ErrNoRuns) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no campaign runs recorded"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run": rec})
}

func stalenessFromQuery(c *gin.Context) (time.Duration, bool) {
	v := c.Query("staleness_days")
	if v == "" {
		return 0, true
	}

	days, err := strconv.Atoi(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid staleness_days"})
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}

func fail(c *gin.Context, err error) {
	if errors.Is(err, campaigns.ErrInvalidStaleness) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
}

package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/atelierline/agency-backend/internal/auth"
	"github.com/atelierline/agency-backend/internal/projects/domain"
)

type createReq struct {
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || req.OwnerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.svc.CreateProject(c.Request.Context(), auth.ActorFrom(c), req.OwnerID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) get(c *gin.Context) {
	p, b, err := h.svc.GetProject(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{"ok": true, "project": p}
	if b != nil {
		resp["latest_brief"] = b
	}
	c.JSON(http.StatusOK, resp)
}

type submitBriefReq struct {
	Content string `json:"content"`
}

func (h *Handler) submitBrief(c *gin.Context) {
	var req submitBriefReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	b, err := h.svc.SubmitBrief(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "brief": b})
}

func (h *Handler) approveBrief(c *gin.Context) {
	b, err := h.svc.ApproveBrief(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "brief": b})
}

type rejectBriefReq struct {
	Comment string `json:"comment"`
}

func (h *Handler) rejectBrief(c *gin.Context) {
	var req rejectBriefReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	b, err := h.svc.RejectBrief(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.Comment)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "brief": b})
}

type modificationReq struct {
	Feedback string `json:"feedback"`
}

func (h *Handler) requestModification(c *gin.Context) {
	var req modificationReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Feedback) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	b, res, err := h.svc.RequestModification(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.Feedback)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "brief": b, "notified": res.CreatedCount})
}

func (h *Handler) validateDelivery(c *gin.Context) {
	p, err := h.svc.ValidateDelivery(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

// fail maps domain errors onto status codes.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "invalid state for this transition"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}

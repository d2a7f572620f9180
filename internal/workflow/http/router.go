package http

import (
	"github.com/gin-gonic/gin"

	"github.com/atelierline/agency-backend/internal/workflow"
)

type Handler struct {
	svc *workflow.Service
}

func New(svc *workflow.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the project workflow routes on an authenticated group.
func (h *Handler) Register(g gin.IRouter) {
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/brief", h.submitBrief)
	g.POST("/:id/brief/approve", h.approveBrief)
	g.POST("/:id/brief/reject", h.rejectBrief)
	g.POST("/:id/modifications", h.requestModification)
	g.POST("/:id/delivery/validate", h.validateDelivery)
}

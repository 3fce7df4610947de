package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/shared/server/middleware"
	"traveldocs-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard", h.snapshot)
	rg.GET("/timeline", h.timeline)
}

func (h *Handler) snapshot(c *gin.Context) {
	snap, err := h.Svc.Snapshot(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) timeline(c *gin.Context) {
	entries, err := h.Svc.Timeline(c.Request.Context(), middleware.UserIDFromContext(c), c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"timeline": entries})
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidInput) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "from and to must be YYYY-MM-DD", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load dashboard", err.Error())
}

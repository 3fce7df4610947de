package reminders

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

// RegisterRoutes attaches reminder routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reminders", h.list)
	rg.POST("/reminders", h.create)
	rg.PUT("/reminders/:id", h.update)
	rg.DELETE("/reminders/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	list, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"reminders": ToResponses(list)})
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	rm, err := h.Svc.CreateManual(c.Request.Context(), middleware.UserIDFromContext(c), Input{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Priority:    req.Priority,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Created(c, ToResponse(rm))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	rm, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), Patch{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Priority:    req.Priority,
		Completed:   req.Completed,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, ToResponse(rm))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "reminder not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "reminder operation failed", err.Error())
	}
}

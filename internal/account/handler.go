package account

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
	rg.POST("/account/claim-guest", h.claimGuest)
}

func (h *Handler) claimGuest(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	result, err := h.Svc.ClaimGuest(c.Request.Context(), ClaimRequest{
		UserID:    middleware.UserIDFromContext(c),
		Guest:     middleware.IsGuest(c),
		GuestID:   c.GetHeader("X-Guest-Id"),
		RequestID: middleware.RequestIDFromContext(c),
	})
	switch {
	case err == nil:
		respond.JSON(c, http.StatusOK, result)
	case errors.Is(err, ErrLoginRequired):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
	case errors.Is(err, ErrMissingGuestID):
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing X-Guest-Id header", []map[string]string{
			{"field": "X-Guest-Id", "issue": "required"},
		})
	case errors.Is(err, ErrInvalidGuestID):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid guest id", []map[string]string{
			{"field": "X-Guest-Id", "issue": "invalid"},
		})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to claim guest data", err.Error())
	}
}

package users

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
	rg.GET("/me", h.me)
}

type meResponse struct {
	UserID     string `json:"userId"`
	IsGuest    bool   `json:"isGuest"`
	Email      string `json:"email,omitempty"`
	FullName   string `json:"fullName,omitempty"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

// me answers for guests too, so the UI can tell which identity owns its data.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	resp := meResponse{UserID: userID, IsGuest: middleware.IsGuest(c)}
	if resp.IsGuest {
		respond.OK(c, resp)
		return
	}

	// Token claims cover users whose row has not been written yet.
	resp.Email = middleware.UserEmailFromContext(c)
	resp.FullName = middleware.UserNameFromContext(c)
	resp.PictureURL = middleware.UserPictureFromContext(c)
	if h.Svc != nil {
		user, err := h.Svc.GetByID(c.Request.Context(), userID)
		switch {
		case err == nil:
			resp.Email, resp.FullName, resp.PictureURL = user.Email, user.FullName, user.PictureURL
		case errors.Is(err, ErrNotFound):
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
			return
		}
	}
	respond.OK(c, resp)
}

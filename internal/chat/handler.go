package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/llm"
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
	rg.POST("/chat", h.chat)
}

type chatRequest struct {
	Message  string    `json:"message"`
	History  []Message `json:"history"`
	Language string    `json:"language"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	reply, err := h.Svc.Reply(c.Request.Context(), Request{
		UserID:   middleware.UserIDFromContext(c),
		Message:  req.Message,
		History:  req.History,
		Language: req.Language,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, llm.ErrNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "assistant_unavailable", "assistant is not configured", nil)
		case errors.Is(err, ErrUpstream):
			respond.Error(c, http.StatusBadGateway, "assistant_failed", "assistant could not answer", err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "chat failed", err.Error())
		}
		return
	}
	respond.OK(c, gin.H{"reply": reply})
}

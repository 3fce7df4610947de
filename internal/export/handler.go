package export

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/shared/server/middleware"
	"traveldocs-backend/internal/shared/server/respond"
	"traveldocs-backend/internal/shared/telemetry"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export/calendar.ics", h.calendar)
	rg.GET("/export/reminders.xlsx", h.workbook)
}

func (h *Handler) calendar(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	body, err := h.Svc.Calendar(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export calendar", err.Error())
		return
	}
	telemetry.Info("export.calendar", map[string]any{"user_id": userID, "bytes": len(body)})
	c.Header("Content-Disposition", `attachment; filename="traveldocs.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

func (h *Handler) workbook(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	body, err := h.Svc.Workbook(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export reminders", err.Error())
		return
	}
	telemetry.Info("export.workbook", map[string]any{"user_id": userID, "bytes": len(body)})
	c.Header("Content-Disposition", `attachment; filename="reminders.xlsx"`)
	c.Data(http.StatusOK, xlsxMimeType, body)
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/shared/metrics"
	"traveldocs-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	DocumentIDKey    = "documentId"
	ReminderIDKey    = "reminderId"
	UploadOutcomeKey = "uploadOutcome"
)

// Logging emits a structured log line and HTTP metrics per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), status, latency)

		userID, _ := c.Get(userIDKey)
		isGuest, _ := c.Get(isGuestKey)
		documentID, _ := c.Get(DocumentIDKey)
		reminderID, _ := c.Get(ReminderIDKey)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     userID,
			"document_id": documentID,
			"reminder_id": reminderID,
			"is_guest":    isGuest,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if outcome := c.GetString(UploadOutcomeKey); outcome != "" {
			fields["upload_outcome"] = outcome
		}
		telemetry.Info("request.complete", fields)
	}
}

package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/llm"
	"traveldocs-backend/internal/normalize"
	"traveldocs-backend/internal/shared/resilience"
	"traveldocs-backend/internal/shared/server/middleware"
	"traveldocs-backend/internal/shared/server/respond"
	"traveldocs-backend/internal/usage"
)

const maxUploadSize = 20 << 20 // 20MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)

	byID := rg.Group("/documents/:id", tagDocument)
	byID.GET("", h.get)
	byID.PUT("", h.update)
	byID.DELETE("", h.delete)
	byID.GET("/file", h.file)
}

func tagDocument(c *gin.Context) {
	c.Set(middleware.DocumentIDKey, c.Param("id"))
	c.Next()
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	out, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		UserID:    userID,
		FileName:  fileHeader.Filename,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		Body:      file,
		Language:  c.PostForm("language"),
		RequestID: middleware.RequestIDFromContext(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if out.Duplicate {
		c.Set(middleware.UploadOutcomeKey, "duplicate")
		details := gin.H{}
		if out.Existing.ID != "" {
			details["existingDocumentId"] = out.Existing.ID
		} else {
			details["inFlight"] = true
		}
		respond.Error(c, http.StatusConflict, "duplicate_document", "this file was already uploaded", details)
		return
	}

	c.Set(middleware.UploadOutcomeKey, "created")
	c.Set(middleware.DocumentIDKey, out.Document.ID)
	respond.Created(c, toResponse(out.Document))
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.OK(c, gin.H{"documents": resp})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	doc, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.toPatch())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), middleware.RequestIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) file(c *gin.Context) {
	url, err := h.Svc.FileURL(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func writeError(c *gin.Context, err error) {
	var extractErr *extraction.Error
	var persistErr *PersistenceError
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, normalize.ErrUnsupportedFormat):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_format", "this file type is not supported", err.Error())
	case errors.Is(err, normalize.ErrNoRenderableContent):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_format", "no readable content found in this file", nil)
	case errors.Is(err, usage.ErrLimitReached):
		respond.Error(c, http.StatusTooManyRequests, "limit_reached", "extraction quota reached", nil)
	case errors.Is(err, llm.ErrNotConfigured) || resilience.IsCircuitOpen(err):
		respond.Error(c, http.StatusServiceUnavailable, "extraction_unavailable", "document extraction is temporarily unavailable", nil)
	case errors.As(err, &extractErr):
		respond.Error(c, http.StatusBadGateway, "extraction_failed", "could not extract document details", gin.H{
			"kind":   string(extractErr.Kind),
			"reason": extractErr.Error(),
		})
	case errors.As(err, &persistErr):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to save document", persistErr.Err.Error())
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "document operation failed", err.Error())
	}
}

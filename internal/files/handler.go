// Package files serves objects from the local store behind signed URLs.
package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/shared/server/respond"
	"traveldocs-backend/internal/shared/storage/object"
	"traveldocs-backend/internal/shared/storage/object/local"
)

const maxServeSize = 32 << 20

// SignedStore is the subset of the local store needed to serve signed links.
type SignedStore interface {
	Verify(storageKey, expires, sig string) error
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

type Handler struct {
	Store SignedStore
}

func NewHandler(store SignedStore) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files/*key", h.download)
}

func (h *Handler) download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		return
	}
	if err := h.Store.Verify(key, c.Query("expires"), c.Query("sig")); err != nil {
		status := http.StatusForbidden
		code := "invalid_signature"
		if errors.Is(err, local.ErrExpired) {
			code = "link_expired"
		}
		respond.Error(c, status, code, "file link is invalid or expired", nil)
		return
	}

	rc, err := h.Store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) || errors.Is(err, local.ErrInvalidKey) {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open file", nil)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxServeSize))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read file", nil)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+strings.ReplaceAll(path.Base(key), `"`, "")+`"`)
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/shared/config"
	"traveldocs-backend/internal/shared/metrics"
	"traveldocs-backend/internal/shared/server/middleware"
	"traveldocs-backend/internal/shared/server/respond"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config config.Config

	// Routes are registered in order on the authenticated /api/v1 group.
	Routes []RouteRegistrar

	// DevRoutes are mounted under /api/v1/dev in dev-like environments only.
	DevRoutes []DevRouteRegistrar

	// Health adds readiness details to the health payload.
	Health func() map[string]any
}

type DevRouteRegistrar interface {
	RegisterDevRoutes(rg *gin.RouterGroup)
}

const uploadGroup = "UPLOAD"

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if !config.IsDevLike(cfg.Env) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT":   {Rate: cfg.RateLimitDefaultRPS, Burst: cfg.RateLimitDefaultBurst},
				uploadGroup: {Rate: cfg.RateLimitUploadRPS, Burst: cfg.RateLimitUploadBurst},
			},
			GroupFor: rateLimitGroup,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		body := gin.H{"ok": true}
		if deps.Health != nil {
			for k, v := range deps.Health() {
				body[k] = v
			}
		}
		respond.JSON(c, http.StatusOK, body)
	})
	for _, h := range deps.Routes {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	if config.IsDevLike(cfg.Env) && len(deps.DevRoutes) > 0 {
		dev := api.Group("/dev")
		for _, h := range deps.DevRoutes {
			if h != nil {
				h.RegisterDevRoutes(dev)
			}
		}
	}

	return r
}

// rateLimitGroup puts uploads and chat, the calls that reach the model, in the stricter bucket.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	switch strings.TrimSuffix(c.Request.URL.Path, "/") {
	case "/api/v1/documents", "/api/v1/chat":
		return uploadGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

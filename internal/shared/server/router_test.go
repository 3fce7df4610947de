package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/shared/config"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func (pingRoutes) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/reset", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestRouter(env string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{
		Config: config.Config{
			Env:                   env,
			CORSAllowOrigin:       []string{"http://localhost:5173"},
			RateLimitDefaultRPS:   100,
			RateLimitDefaultBurst: 100,
			RateLimitUploadRPS:    1,
			RateLimitUploadBurst:  1,
		},
		Routes:    []RouteRegistrar{pingRoutes{}},
		DevRoutes: []DevRouteRegistrar{pingRoutes{}},
		Health:    func() map[string]any { return map[string]any{"database": false} },
	})
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter("dev")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["database"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestFeatureRoutesRequireIdentity(t *testing.T) {
	r := newTestRouter("dev")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-Guest-Id", "0b6f3c9e-2d1a-4f5b-9c8e-7a6d5e4f3b2a")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("expected pong for guest, got %d %q", w.Code, w.Body.String())
	}
}

func TestDevRoutesOnlyInDevLikeEnvs(t *testing.T) {
	for env, want := range map[string]int{"dev": http.StatusNoContent, "production": http.StatusNotFound} {
		r := newTestRouter(env)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dev/reset", nil)
		req.Header.Set("X-Guest-Id", "0b6f3c9e-2d1a-4f5b-9c8e-7a6d5e4f3b2a")
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("env %s: expected %d, got %d", env, want, w.Code)
		}
	}
}

func TestRateLimitGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/api/v1/documents", uploadGroup},
		{http.MethodPost, "/api/v1/documents/", uploadGroup},
		{http.MethodPost, "/api/v1/chat", uploadGroup},
		{http.MethodGet, "/api/v1/documents", ""},
		{http.MethodPost, "/api/v1/reminders", ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(tc.method, tc.path, nil)
		if got := rateLimitGroup(c); got != tc.want {
			t.Fatalf("%s %s: got %q want %q", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestAddr(t *testing.T) {
	if Addr("") != ":8080" || Addr("9000") != ":9000" || Addr(":7000") != ":7000" {
		t.Fatalf("unexpected addr normalization")
	}
}

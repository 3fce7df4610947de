package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/reminders"
	"traveldocs-backend/internal/shared/storage/object/local"
	"traveldocs-backend/internal/usage"
)

type testEnv struct {
	router   *gin.Engine
	docRepo  *documents.MemoryRepo
	remRepo  *reminders.MemoryRepo
	usageSvc *usage.Service
	authedID string
	isGuest  bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	remRepo := reminders.NewMemoryRepo()
	docRepo := documents.NewMemoryRepo(remRepo)
	docSvc := documents.NewService(documents.Deps{
		Repo:      docRepo,
		Reminders: remRepo,
		Store:     local.New(t.TempDir(), "http://api.test", "secret"),
	})
	usageSvc := usage.NewService(usage.Policy{Limit: 5})
	env := &testEnv{docRepo: docRepo, remRepo: remRepo, usageSvc: usageSvc, authedID: "user-1"}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", env.authedID)
		c.Set("isGuest", env.isGuest)
		c.Next()
	})
	NewHandler(NewService(docSvc, remRepo, usageSvc)).RegisterRoutes(router.Group("/api/v1"))
	env.router = router
	return env
}

func (e *testEnv) claim(guestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func seedDocument(t *testing.T, repo *documents.MemoryRepo, id, userID, fingerprint string, rs []reminders.Reminder) {
	t.Helper()
	doc := documents.Document{
		ID:          id,
		UserID:      userID,
		FileName:    "ticket.pdf",
		Fingerprint: fingerprint,
		Metadata:    documents.Metadata{Category: extraction.CategoryTicket, Title: "LH 400"},
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Save(context.Background(), doc, rs); err != nil {
		t.Fatalf("save document: %v", err)
	}
}

func TestClaimGuestMigratesData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guestID := "11111111-1111-1111-1111-111111111111"
	guestUserID := "guest:" + guestID

	seedDocument(t, env.docRepo, "doc-1", guestUserID, "fp-1", []reminders.Reminder{{
		ID: "r-1", UserID: guestUserID, DocumentID: "doc-1", Source: reminders.SourceDocument, Title: "Departure", Date: "2025-03-01",
	}})
	if err := env.remRepo.Create(ctx, reminders.Reminder{ID: "r-2", UserID: guestUserID, Source: reminders.SourceManual, Title: "Pack", Date: "2025-02-28"}); err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	if _, err := env.usageSvc.Consume(ctx, guestUserID, 2); err != nil {
		t.Fatalf("consume: %v", err)
	}

	resp := env.claim(guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedDocuments != 1 || result.MigratedReminders != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	docs, err := env.docRepo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 migrated doc, got %d", len(docs))
	}
	rems, err := env.remRepo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(rems) != 2 {
		t.Fatalf("expected 2 migrated reminders, got %d", len(rems))
	}
	u, err := env.usageSvc.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used != 2 {
		t.Fatalf("expected guest usage carried over, got %d", u.Used)
	}
}

func TestClaimGuestDropsFilesAlreadyOwned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guestID := "33333333-3333-3333-3333-333333333333"
	guestUserID := "guest:" + guestID

	seedDocument(t, env.docRepo, "mine", "user-1", "fp-same", nil)
	seedDocument(t, env.docRepo, "guest-copy", guestUserID, "fp-same", []reminders.Reminder{{
		ID: "r-copy", UserID: guestUserID, DocumentID: "guest-copy", Source: reminders.SourceDocument, Title: "Departure", Date: "2025-03-01",
	}})

	resp := env.claim(guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	docs, err := env.docRepo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "mine" {
		t.Fatalf("expected only the owned copy, got %+v", docs)
	}
	rems, err := env.remRepo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(rems) != 0 {
		t.Fatalf("reminders of the dropped copy must go with it, got %d", len(rems))
	}
}

func TestClaimGuestIdempotentAndIsolated(t *testing.T) {
	env := newTestEnv(t)
	guestID := "22222222-2222-2222-2222-222222222222"
	seedDocument(t, env.docRepo, "doc-2", "guest:"+guestID, "fp-2", nil)

	if resp := env.claim(guestID); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp := env.claim(guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 on idempotent call, got %d", resp.Code)
	}
	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedDocuments != 0 {
		t.Fatalf("second claim should move nothing, got %+v", result)
	}

	docs, err := env.docRepo.ListByUser(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no docs for other user, got %d", len(docs))
	}
}

func TestClaimGuestRejectsGuestsAndBadIDs(t *testing.T) {
	env := newTestEnv(t)
	if resp := env.claim("not-a-uuid"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid guest id, got %d", resp.Code)
	}
	if resp := env.claim(""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing guest id, got %d", resp.Code)
	}
	env.isGuest = true
	if resp := env.claim("11111111-1111-1111-1111-111111111111"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest caller, got %d", resp.Code)
	}
}

package documents

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/queue"
	"traveldocs-backend/internal/reminders"
	"traveldocs-backend/internal/shared/storage/object"
	"traveldocs-backend/internal/shared/storage/object/local"
)

var fixedNow = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

// ticketText is long enough for the text branch of the normalizer.
const ticketText = `Lufthansa e-ticket LH 400
Passenger: Jane Traveler
Frankfurt (FRA) to New York (JFK), departure 01 March 2025 14:00
Booking reference ABC123`

type stubExtractor struct {
	result extraction.Result
	err    error
	calls  int
	last   extraction.Request
	// after runs once the answer is ready, before it is returned.
	after func()
}

func (s *stubExtractor) Extract(_ context.Context, req extraction.Request) (extraction.Result, error) {
	s.calls++
	s.last = req
	if s.after != nil {
		s.after()
	}
	return s.result, s.err
}

func flightResult() extraction.Result {
	return extraction.Result{
		Category:           extraction.CategoryTicket,
		CategoryConfidence: 0.97,
		Title:              "LH 400 Frankfurt to New York",
		Summary:            "Flight FRA to JFK",
		EventDate:          "2025-03-01",
		EventTime:          "14:00",
		Location:           "Frankfurt Airport",
		ReferenceNumber:    "ABC123",
		KeyDetails:         []string{"Seat 42A"},
		Policies:           []string{"23kg checked baggage"},
		Reminders: []extraction.ReminderDraft{
			{Title: "Leave for departure: LH 400", Date: "2025-03-01", Time: "12:00", Priority: extraction.PriorityHigh},
			{Title: "Departure: LH 400", Date: "2025-03-01", Time: "14:00", Priority: extraction.PriorityHigh},
		},
	}
}

// flakyStore wraps a real store and can fail deletes.
type flakyStore struct {
	object.ObjectStore
	deleteErr error
	deleted   []string
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.ObjectStore.Delete(ctx, key)
}

type recordingQueue struct {
	msgs []queue.Message
}

func (q *recordingQueue) Send(_ context.Context, msg queue.Message) error {
	q.msgs = append(q.msgs, msg)
	return nil
}

type countingCache struct{ users []string }

func (c *countingCache) Invalidate(_ context.Context, userID string) {
	c.users = append(c.users, userID)
}

type fixture struct {
	svc       *Service
	repo      *MemoryRepo
	reminders *reminders.MemoryRepo
	store     *flakyStore
	extractor *stubExtractor
	queue     *recordingQueue
	cache     *countingCache
	dir       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	rem := reminders.NewMemoryRepo()
	f := &fixture{
		reminders: rem,
		repo:      NewMemoryRepo(rem),
		store:     &flakyStore{ObjectStore: local.New(dir, "http://api.test", "secret")},
		extractor: &stubExtractor{result: flightResult()},
		queue:     &recordingQueue{},
		cache:     &countingCache{},
		dir:       dir,
	}
	f.svc = NewService(Deps{
		Repo:      f.repo,
		Reminders: rem,
		Store:     f.store,
		Extractor: f.extractor,
		Queue:     f.queue,
		Cache:     f.cache,
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) upload(t *testing.T, userID, name, body string) (Outcome, error) {
	t.Helper()
	return f.svc.Upload(context.Background(), UploadInput{
		UserID:    userID,
		FileName:  name,
		MimeType:  "text/plain",
		Body:      strings.NewReader(body),
		RequestID: "req-1",
	})
}

func (f *fixture) storedObjects(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(f.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk store: %v", err)
	}
	return n
}

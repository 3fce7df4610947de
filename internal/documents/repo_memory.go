package documents

import (
	"context"
	"sort"
	"sync"

	"traveldocs-backend/internal/reminders"
)

// MemoryRepo is an in-memory Repo. It cascades deletes into the reminders repo
// the way the foreign key does in Postgres.
type MemoryRepo struct {
	mu        sync.RWMutex
	data      map[string]Document // id -> document
	reminders reminders.Repo
}

// NewMemoryRepo constructs a MemoryRepo sharing rem for child reminders.
func NewMemoryRepo(rem reminders.Repo) *MemoryRepo {
	return &MemoryRepo{
		data:      make(map[string]Document),
		reminders: rem,
	}
}

func (r *MemoryRepo) Save(ctx context.Context, doc Document, rs []reminders.Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.data {
		if id != doc.ID && existing.UserID == doc.UserID && existing.Fingerprint == doc.Fingerprint {
			return ErrDuplicate
		}
	}
	if cur, ok := r.data[doc.ID]; ok && cur.UserID != doc.UserID {
		return ErrNotFound
	}
	if err := r.reminders.ReplaceForDocument(ctx, doc.UserID, doc.ID, rs); err != nil {
		return err
	}
	doc.FileURL = ""
	doc.Reminders = nil
	r.data[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) FindByFingerprint(ctx context.Context, userID, fingerprint string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data {
		if doc.UserID == userID && doc.Fingerprint == fingerprint {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByUser returns documents newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Document{}
	for _, doc := range r.data {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	if err := r.reminders.DeleteByDocument(ctx, userID, id); err != nil {
		return err
	}
	delete(r.data, id)
	return nil
}

// ClaimGuest moves guest documents whose fingerprint the authenticated user does not already own.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	owned := make(map[string]struct{})
	for _, doc := range r.data {
		if doc.UserID == authedUserID {
			owned[doc.Fingerprint] = struct{}{}
		}
	}
	n := 0
	for id, doc := range r.data {
		if doc.UserID != guestUserID {
			continue
		}
		if _, dup := owned[doc.Fingerprint]; dup {
			continue
		}
		doc.UserID = authedUserID
		r.data[id] = doc
		n++
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)

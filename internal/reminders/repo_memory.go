package reminders

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo. Document deletion cascades through DeleteByDocument.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Reminder // id -> reminder
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Reminder)}
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Reminder{}
	for _, rm := range r.data {
		if rm.UserID == userID {
			out = append(out, rm)
		}
	}
	SortByDue(out)
	return out, nil
}

func (r *MemoryRepo) ListByDocuments(ctx context.Context, userID string, documentIDs []string) (map[string][]Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		want[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Reminder)
	for _, rm := range r.data {
		if rm.UserID != userID || rm.DocumentID == "" {
			continue
		}
		if _, ok := want[rm.DocumentID]; ok {
			out[rm.DocumentID] = append(out[rm.DocumentID], rm)
		}
	}
	for id := range out {
		SortByDue(out[id])
	}
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Reminder, error) {
	if err := ctx.Err(); err != nil {
		return Reminder{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.data[id]
	if !ok || rm.UserID != userID {
		return Reminder{}, ErrNotFound
	}
	return rm, nil
}

func (r *MemoryRepo) Create(ctx context.Context, rm Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rm.ID] = rm
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, rm Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[rm.ID]
	if !ok || cur.UserID != rm.UserID {
		return ErrNotFound
	}
	r.data[rm.ID] = rm
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[id]
	if !ok || cur.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) ReplaceForDocument(ctx context.Context, userID, documentID string, rs []Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteByDocumentLocked(userID, documentID)
	for _, rm := range rs {
		r.data[rm.ID] = rm
	}
	return nil
}

func (r *MemoryRepo) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteByDocumentLocked(userID, documentID)
	return nil
}

func (r *MemoryRepo) deleteByDocumentLocked(userID, documentID string) {
	for id, rm := range r.data {
		if rm.UserID == userID && rm.DocumentID == documentID && rm.Source == SourceDocument {
			delete(r.data, id)
		}
	}
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rm := range r.data {
		if rm.UserID == guestUserID {
			rm.UserID = authedUserID
			r.data[id] = rm
			n++
		}
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)

package documents

import (
	"context"

	"traveldocs-backend/internal/reminders"
)

// Repo persists documents. Reads and writes are scoped to the owner.
type Repo interface {
	// Save upserts doc and replaces its document-sourced reminders in one unit.
	// A second live document with the same owner and fingerprint yields ErrDuplicate.
	Save(ctx context.Context, doc Document, rs []reminders.Reminder) error
	FindByFingerprint(ctx context.Context, userID, fingerprint string) (Document, error)
	Get(ctx context.Context, userID, id string) (Document, error)
	ListByUser(ctx context.Context, userID string) ([]Document, error)
	Delete(ctx context.Context, userID, id string) error
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

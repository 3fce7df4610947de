package reminders

import "context"

// Repo persists reminders. All reads and writes are scoped to the owner.
type Repo interface {
	ListByUser(ctx context.Context, userID string) ([]Reminder, error)
	ListByDocuments(ctx context.Context, userID string, documentIDs []string) (map[string][]Reminder, error)
	Get(ctx context.Context, userID, id string) (Reminder, error)
	Create(ctx context.Context, r Reminder) error
	Update(ctx context.Context, r Reminder) error
	Delete(ctx context.Context, userID, id string) error
	ReplaceForDocument(ctx context.Context, userID, documentID string, rs []Reminder) error
	DeleteByDocument(ctx context.Context, userID, documentID string) error
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

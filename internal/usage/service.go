package usage

import (
	"context"
	"time"
)

type store interface {
	EnsurePeriod(ctx context.Context, userID string, now time.Time) (Usage, error)
	Consume(ctx context.Context, userID string, n int, now time.Time) (Usage, error)
	Reset(ctx context.Context, userID string, now time.Time) (Usage, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) error
}

// Service manages extraction quotas via an underlying store.
type Service struct {
	store store
	now   func() time.Time
}

// NewService constructs a Service with in-memory store.
func NewService(p Policy) *Service {
	return &Service{store: newMemoryStore(p.withDefaults()), now: time.Now}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore *PGStore) *Service {
	return &Service{store: pgStore, now: time.Now}
}

// Get returns the current usage for a user, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, userID string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, userID, s.now().UTC())
}

// CanConsume reports whether the user can consume n units.
func (s *Service) CanConsume(ctx context.Context, userID string, n int) (bool, Usage, error) {
	u, err := s.store.EnsurePeriod(ctx, userID, s.now().UTC())
	if err != nil {
		return false, Usage{}, err
	}
	if n <= 0 {
		return true, u, nil
	}
	return u.Used+n <= u.Limit, u, nil
}

// Consume increments usage by n, or returns ErrLimitReached.
func (s *Service) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	return s.store.Consume(ctx, userID, n, s.now().UTC())
}

// Reset sets usage to zero and restarts the window.
func (s *Service) Reset(ctx context.Context, userID string) (Usage, error) {
	return s.store.Reset(ctx, userID, s.now().UTC())
}

// ClaimGuest folds the guest's consumption into the authenticated user's counter.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) error {
	return s.store.ClaimGuest(ctx, guestUserID, authedUserID)
}

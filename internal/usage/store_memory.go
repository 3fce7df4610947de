package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	policy Policy

	mu   sync.Mutex
	data map[string]Usage
}

func newMemoryStore(p Policy) *memoryStore {
	return &memoryStore{policy: p, data: make(map[string]Usage)}
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, userID string, now time.Time) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(userID, now), nil
}

func (s *memoryStore) ensureLocked(userID string, now time.Time) Usage {
	u, ok := s.data[userID]
	if !ok {
		u = s.policy.fresh(now)
	}
	u, _ = s.policy.roll(u, now)
	s.data[userID] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, userID string, n int, now time.Time) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(userID, now)
	if n <= 0 {
		return u, nil
	}
	if u.Used+n > u.Limit {
		return u, ErrLimitReached
	}
	u.Used += n
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, userID string, now time.Time) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.policy.fresh(now)
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	guest, ok := s.data[guestUserID]
	if !ok {
		return nil
	}
	authed, ok := s.data[authedUserID]
	if !ok {
		authed = guest
	} else {
		authed.Used += guest.Used
	}
	s.data[authedUserID] = authed
	delete(s.data, guestUserID)
	return nil
}

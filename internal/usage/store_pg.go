package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"traveldocs-backend/internal/shared/storage/db"
)

// PGStore keeps usage counters in the usage table; the limit comes from Policy.
type PGStore struct {
	DB     *sql.DB
	policy Policy
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(database *sql.DB, p Policy) *PGStore {
	return &PGStore{DB: database, policy: p.withDefaults()}
}

func (s *PGStore) EnsurePeriod(ctx context.Context, userID string, now time.Time) (Usage, error) {
	var u Usage
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		u, err = s.lockAndEnsure(ctx, tx, userID, now)
		return err
	})
	return u, err
}

func (s *PGStore) Consume(ctx context.Context, userID string, n int, now time.Time) (Usage, error) {
	var u Usage
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		u, err = s.lockAndEnsure(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		if n <= 0 {
			return nil
		}
		if u.Used+n > u.Limit {
			return ErrLimitReached
		}
		u.Used += n
		_, err = tx.ExecContext(ctx, `UPDATE usage SET used = $1, updated_at = $2 WHERE user_id = $3`, u.Used, now, userID)
		return err
	})
	return u, err
}

func (s *PGStore) Reset(ctx context.Context, userID string, now time.Time) (Usage, error) {
	u := s.policy.fresh(now)
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, used, resets_at, updated_at)
VALUES ($1, $2, 0, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET used = 0, resets_at = EXCLUDED.resets_at, updated_at = EXCLUDED.updated_at`,
		userID, u.Plan, u.ResetsAt, now)
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

// ClaimGuest adds the guest counter to the authenticated user's row and removes the guest row.
func (s *PGStore) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) error {
	return db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, used, resets_at, updated_at)
SELECT $1, plan, used, resets_at, now() FROM usage WHERE user_id = $2
ON CONFLICT (user_id) DO UPDATE SET used = usage.used + EXCLUDED.used, updated_at = now()`,
			authedUserID, guestUserID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM usage WHERE user_id = $1`, guestUserID)
		return err
	})
}

func (s *PGStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string, now time.Time) (Usage, error) {
	u := Usage{Limit: s.policy.Limit}
	row := tx.QueryRowContext(ctx, `
SELECT plan, used, resets_at FROM usage WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&u.Plan, &u.Used, &u.ResetsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			u = s.policy.fresh(now)
			if _, err = tx.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, used, resets_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
				userID, u.Plan, u.Used, u.ResetsAt, now); err != nil {
				return Usage{}, err
			}
			return u, nil
		}
		return Usage{}, err
	}

	if rolled, changed := s.policy.roll(u, now); changed {
		u = rolled
		if _, err = tx.ExecContext(ctx, `UPDATE usage SET used = $1, resets_at = $2, updated_at = $3 WHERE user_id = $4`, u.Used, u.ResetsAt, now, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}

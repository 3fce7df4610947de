package reminders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"traveldocs-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres. Document reminders are removed by the
// documents.document_id foreign key cascade.
type PGRepo struct {
	DB *sql.DB
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectColumns = `id, user_id, document_id, source, title, description, due_date, due_time, priority, completed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (Reminder, error) {
	var rm Reminder
	var documentID sql.NullString
	var source, priority string
	var due time.Time
	if err := row.Scan(
		&rm.ID,
		&rm.UserID,
		&documentID,
		&source,
		&rm.Title,
		&rm.Description,
		&due,
		&rm.Time,
		&priority,
		&rm.Completed,
		&rm.CreatedAt,
		&rm.UpdatedAt,
	); err != nil {
		return Reminder{}, err
	}
	if documentID.Valid {
		rm.DocumentID = documentID.String
	}
	rm.Source = Source(source)
	rm.Priority = Priority(priority)
	rm.Date = due.Format("2006-01-02")
	return rm, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Reminder, error) {
	query := `SELECT ` + selectColumns + `
FROM reminders
WHERE user_id = $1
ORDER BY due_date ASC, due_time ASC, title ASC`
	return r.query(ctx, query, userID)
}

// ListByDocuments groups the owner's reminders by parent document id.
func (r *PGRepo) ListByDocuments(ctx context.Context, userID string, documentIDs []string) (map[string][]Reminder, error) {
	out := make(map[string][]Reminder)
	if len(documentIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(documentIDs))
	args := make([]any, 0, len(documentIDs)+1)
	args = append(args, userID)
	for i, id := range documentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := `SELECT ` + selectColumns + `
FROM reminders
WHERE user_id = $1 AND document_id IN (` + strings.Join(placeholders, ", ") + `)
ORDER BY due_date ASC, due_time ASC, title ASC`
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, rm := range list {
		out[rm.DocumentID] = append(out[rm.DocumentID], rm)
	}
	return out, nil
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Reminder, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Reminder{}
	for rows.Next() {
		rm, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Reminder, error) {
	query := `SELECT ` + selectColumns + `
FROM reminders
WHERE user_id = $1 AND id = $2`
	rm, err := scanReminder(r.DB.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, err
	}
	return rm, nil
}

func (r *PGRepo) Create(ctx context.Context, rm Reminder) error {
	return insert(ctx, r.DB, rm)
}

func insert(ctx context.Context, ex execer, rm Reminder) error {
	const query = `
INSERT INTO reminders (
    id,
    user_id,
    document_id,
    source,
    title,
    description,
    due_date,
    due_time,
    priority,
    completed,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var documentID sql.NullString
	if rm.DocumentID != "" {
		documentID = sql.NullString{String: rm.DocumentID, Valid: true}
	}
	_, err := ex.ExecContext(ctx, query,
		rm.ID,
		rm.UserID,
		documentID,
		string(rm.Source),
		rm.Title,
		rm.Description,
		rm.Date,
		rm.Time,
		string(rm.Priority),
		rm.Completed,
		rm.CreatedAt,
		rm.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Update(ctx context.Context, rm Reminder) error {
	const query = `
UPDATE reminders
SET title = $1, description = $2, due_date = $3, due_time = $4, priority = $5, completed = $6, updated_at = $7
WHERE user_id = $8 AND id = $9`
	res, err := r.DB.ExecContext(ctx, query,
		rm.Title,
		rm.Description,
		rm.Date,
		rm.Time,
		string(rm.Priority),
		rm.Completed,
		rm.UpdatedAt,
		rm.UserID,
		rm.ID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *PGRepo) ReplaceForDocument(ctx context.Context, userID, documentID string, rs []Reminder) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		return ReplaceForDocumentTx(ctx, tx, userID, documentID, rs)
	})
}

// ReplaceForDocumentTx swaps a document's reminder set inside the caller's transaction.
func ReplaceForDocumentTx(ctx context.Context, tx *sql.Tx, userID, documentID string, rs []Reminder) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reminders WHERE user_id = $1 AND document_id = $2 AND source = 'document'`,
		userID, documentID,
	); err != nil {
		return fmt.Errorf("delete document reminders: %w", err)
	}
	for _, rm := range rs {
		if err := insert(ctx, tx, rm); err != nil {
			return fmt.Errorf("insert reminder %s: %w", rm.ID, err)
		}
	}
	return nil
}

func (r *PGRepo) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM reminders WHERE user_id = $1 AND document_id = $2 AND source = 'document'`,
		userID, documentID,
	)
	return err
}

// ClaimGuest reassigns reminders owned by a guest user to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE reminders SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

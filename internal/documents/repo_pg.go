package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/reminders"
	"traveldocs-backend/internal/shared/storage/db"
)

// fingerprintConstraint is the unique (user_id, fingerprint) constraint on documents.
const fingerprintConstraint = "documents_user_fingerprint_key"

// PGRepo implements Repo using Postgres. Reminders are written through the
// reminders package inside the same transaction and removed by FK cascade.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, file_name, mime_type, size_bytes, fingerprint, storage_provider, storage_key, content, preview, category, title, event_date, expiry_date, metadata, created_at, updated_at`

// Save upserts the document row and replaces its document reminders.
func (r *PGRepo) Save(ctx context.Context, doc Document, rs []reminders.Reminder) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    mime_type,
    size_bytes,
    fingerprint,
    storage_provider,
    storage_key,
    content,
    preview,
    category,
    title,
    event_date,
    expiry_date,
    metadata,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO UPDATE SET
    category = EXCLUDED.category,
    title = EXCLUDED.title,
    event_date = EXCLUDED.event_date,
    expiry_date = EXCLUDED.expiry_date,
    metadata = EXCLUDED.metadata,
    updated_at = EXCLUDED.updated_at
WHERE documents.user_id = EXCLUDED.user_id`

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	err = db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			doc.ID,
			doc.UserID,
			doc.FileName,
			doc.MimeType,
			doc.SizeBytes,
			doc.Fingerprint,
			doc.StorageProvider,
			doc.StorageKey,
			doc.Content,
			doc.Preview,
			string(doc.Metadata.Category),
			doc.Metadata.Title,
			nullDate(doc.Metadata.EventDate),
			nullDate(doc.Metadata.ExpiryDate),
			meta,
			doc.CreatedAt,
			doc.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return reminders.ReplaceForDocumentTx(ctx, tx, doc.UserID, doc.ID, rs)
	})
	if db.IsUniqueViolation(err, fingerprintConstraint) {
		return ErrDuplicate
	}
	return err
}

func (r *PGRepo) FindByFingerprint(ctx context.Context, userID, fingerprint string) (Document, error) {
	query := `SELECT ` + selectColumns + `
FROM documents
WHERE user_id = $1 AND fingerprint = $2
LIMIT 1`
	return r.getOne(ctx, query, userID, fingerprint)
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Document, error) {
	query := `SELECT ` + selectColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return r.getOne(ctx, query, userID, id)
}

func (r *PGRepo) getOne(ctx context.Context, query string, args ...any) (Document, error) {
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	query := `SELECT ` + selectColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimGuest reassigns guest documents to an authenticated user, skipping files the user already owns.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE documents
SET user_id = $1
WHERE user_id = $2
  AND fingerprint NOT IN (SELECT fingerprint FROM documents WHERE user_id = $1)`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var category, title string
	var eventDate, expiryDate sql.NullTime
	var meta []byte
	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.Fingerprint,
		&doc.StorageProvider,
		&doc.StorageKey,
		&doc.Content,
		&doc.Preview,
		&category,
		&title,
		&eventDate,
		&expiryDate,
		&meta,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return Document{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("decode metadata for %s: %w", doc.ID, err)
		}
	}
	// Flattened columns are authoritative over the blob.
	doc.Metadata.Category = extraction.Category(category)
	doc.Metadata.Title = title
	doc.Metadata.EventDate = formatDate(eventDate)
	doc.Metadata.ExpiryDate = formatDate(expiryDate)
	return doc, nil
}

func nullDate(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.DateOnly)
}

var _ Repo = (*PGRepo)(nil)

package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/normalize"
	"traveldocs-backend/internal/queue"
	"traveldocs-backend/internal/reminders"
	"traveldocs-backend/internal/shared/metrics"
	"traveldocs-backend/internal/shared/storage/cache"
	"traveldocs-backend/internal/shared/storage/object"
	"traveldocs-backend/internal/shared/telemetry"
	"traveldocs-backend/internal/shared/util"
	"traveldocs-backend/internal/usage"
)

const (
	defaultSignedURLTTL = time.Hour
	uploadLockTTL       = 2 * time.Minute
)

// Extractor turns normalized content into validated metadata.
type Extractor interface {
	Extract(ctx context.Context, req extraction.Request) (extraction.Result, error)
}

// Quota meters successful extractions per user.
type Quota interface {
	CanConsume(ctx context.Context, userID string, n int) (bool, usage.Usage, error)
	Consume(ctx context.Context, userID string, n int) (usage.Usage, error)
}

// Service runs the upload pipeline and owns document reads and mutations.
type Service struct {
	Repo       Repo
	Reminders  reminders.Repo
	Store      object.ObjectStore
	Normalizer *normalize.Normalizer
	Extractor  Extractor

	// Optional collaborators; nil disables them.
	Quota  Quota
	Locker cache.Locker
	Queue  queue.Client
	Cache  reminders.Invalidator

	SignedURLTTL    time.Duration
	DefaultLanguage string

	now func() time.Time
}

// Deps groups the collaborators of NewService.
type Deps struct {
	Repo            Repo
	Reminders       reminders.Repo
	Store           object.ObjectStore
	Normalizer      *normalize.Normalizer
	Extractor       Extractor
	Quota           Quota
	Locker          cache.Locker
	Queue           queue.Client
	Cache           reminders.Invalidator
	SignedURLTTL    time.Duration
	DefaultLanguage string
}

func NewService(d Deps) *Service {
	if d.Normalizer == nil {
		d.Normalizer = normalize.New(normalize.DefaultOptions())
	}
	if d.SignedURLTTL <= 0 {
		d.SignedURLTTL = defaultSignedURLTTL
	}
	if d.DefaultLanguage == "" {
		d.DefaultLanguage = "en"
	}
	return &Service{
		Repo:            d.Repo,
		Reminders:       d.Reminders,
		Store:           d.Store,
		Normalizer:      d.Normalizer,
		Extractor:       d.Extractor,
		Quota:           d.Quota,
		Locker:          d.Locker,
		Queue:           d.Queue,
		Cache:           d.Cache,
		SignedURLTTL:    d.SignedURLTTL,
		DefaultLanguage: d.DefaultLanguage,
		now:             time.Now,
	}
}

// UploadInput is one file submitted by a user.
type UploadInput struct {
	UserID    string
	FileName  string
	MimeType  string
	Body      io.Reader
	Language  string
	RequestID string
}

// Outcome reports either a created document or a duplicate of an existing one.
// Existing is empty when an identical upload is still in flight.
type Outcome struct {
	Document  Document
	Duplicate bool
	Existing  Document
}

// Upload runs fingerprint, normalize, duplicate gate, extract, assemble and persist.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Outcome, error) {
	// Once started the pipeline runs to completion; a client hang-up must not
	// discard an extraction that was already paid for.
	ctx = context.WithoutCancel(ctx)
	if strings.TrimSpace(in.UserID) == "" {
		return Outcome{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	fileName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Body == nil {
		return Outcome{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		metrics.IncUpload("invalid")
		return Outcome{}, fmt.Errorf("%w: unable to read file: %v", ErrInvalidInput, err)
	}
	fingerprint := util.FingerprintBytes(data)
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = s.DefaultLanguage
	}

	fields := map[string]any{
		"user_id":     in.UserID,
		"request_id":  in.RequestID,
		"file_name":   fileName,
		"size_bytes":  len(data),
		"fingerprint": fingerprint,
	}

	normalized, err := s.Normalizer.Normalize(ctx, normalize.Input{
		FileName: fileName,
		MimeType: in.MimeType,
		Data:     data,
	})
	if err != nil {
		metrics.IncUpload("unsupported")
		if errors.Is(err, normalize.ErrEmptyInput) {
			return Outcome{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
		}
		return Outcome{}, err
	}
	fields["modality"] = string(normalized.Modality)
	fields["mime_type"] = normalized.SourceMimeType

	if dup, ok, err := s.checkDuplicate(ctx, in.UserID, fingerprint); err != nil {
		return Outcome{}, &PersistenceError{Op: "lookup", Err: err}
	} else if ok {
		return s.duplicate(dup, fields), nil
	}

	if s.Locker != nil {
		lockName := "upload:" + in.UserID + ":" + fingerprint
		acquired, err := s.Locker.Acquire(ctx, lockName, uploadLockTTL)
		switch {
		case err != nil:
			fields["error"] = err.Error()
			telemetry.Warn("documents.upload_lock_unavailable", fields)
			delete(fields, "error")
		case !acquired:
			return s.duplicate(Document{}, fields), nil
		default:
			defer func() {
				if err := s.Locker.Release(ctx, lockName); err != nil {
					telemetry.Warn("documents.upload_lock_release_failed", map[string]any{"error": err.Error()})
				}
			}()
		}
	}

	if s.Quota != nil {
		ok, _, err := s.Quota.CanConsume(ctx, in.UserID, 1)
		if err != nil {
			return Outcome{}, fmt.Errorf("check usage: %w", err)
		}
		if !ok {
			metrics.IncUpload("limit_reached")
			return Outcome{}, usage.ErrLimitReached
		}
	}

	now := s.now().UTC()
	started := time.Now()
	extracted, err := s.Extractor.Extract(ctx, extraction.Request{
		Text:          normalized.Text,
		ImageBase64:   normalized.ImageBase64,
		ImageMimeType: normalized.ImageMimeType,
		IsText:        normalized.IsText(),
		Language:      language,
		Now:           now,
		FileName:      fileName,
	})
	metrics.ObserveExtraction(string(normalized.Modality), err == nil, time.Since(started))
	if err != nil {
		metrics.IncUpload("extraction_failed")
		fields["error"] = err.Error()
		telemetry.Error("documents.extraction_failed", fields)
		return Outcome{}, err
	}
	storageKey, _, err := s.Store.Save(ctx, in.UserID, normalized.PayloadName, normalized.PayloadMimeType, bytes.NewReader(normalized.Payload))
	if err != nil {
		metrics.IncUpload("persistence_error")
		return Outcome{}, &PersistenceError{Op: "store", Err: err}
	}

	doc, rs := assemble(assembleInput{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		FileName:        fileName,
		SizeBytes:       int64(len(normalized.Payload)),
		Fingerprint:     fingerprint,
		Language:        language,
		StorageProvider: s.Store.Provider(),
		StorageKey:      storageKey,
		Normalized:      normalized,
		Extracted:       extracted,
		Now:             now,
	})

	if err := s.Repo.Save(ctx, doc, rs); err != nil {
		s.discardObject(ctx, storageKey, fields)
		if errors.Is(err, ErrDuplicate) {
			existing, findErr := s.Repo.FindByFingerprint(ctx, in.UserID, fingerprint)
			if findErr != nil {
				existing = Document{}
			}
			return s.duplicate(existing, fields), nil
		}
		metrics.IncUpload("persistence_error")
		fields["error"] = err.Error()
		telemetry.Error("documents.persist_failed", fields)
		return Outcome{}, &PersistenceError{Op: "save", Err: err}
	}

	if s.Quota != nil {
		if _, err := s.Quota.Consume(ctx, in.UserID, 1); err != nil {
			telemetry.Warn("documents.usage_consume_failed", map[string]any{"user_id": in.UserID, "error": err.Error()})
		}
	}
	s.invalidate(ctx, in.UserID)
	metrics.IncUpload("created")
	fields["document_id"] = doc.ID
	fields["category"] = string(doc.Metadata.Category)
	fields["reminders"] = len(rs)
	telemetry.Info("documents.uploaded", fields)

	doc.Reminders = rs
	reminders.SortByDue(doc.Reminders)
	doc.FileURL = s.signedURL(ctx, doc)
	return Outcome{Document: doc}, nil
}

// checkDuplicate is the fast path of the duplicate gate; the unique index is authoritative.
func (s *Service) checkDuplicate(ctx context.Context, userID, fingerprint string) (Document, bool, error) {
	existing, err := s.Repo.FindByFingerprint(ctx, userID, fingerprint)
	switch {
	case err == nil:
		return existing, true, nil
	case errors.Is(err, ErrNotFound):
		return Document{}, false, nil
	default:
		return Document{}, false, err
	}
}

func (s *Service) duplicate(existing Document, fields map[string]any) Outcome {
	metrics.IncUpload("duplicate")
	fields["existing_document_id"] = existing.ID
	telemetry.Info("documents.duplicate", fields)
	return Outcome{Duplicate: true, Existing: existing}
}

func (s *Service) discardObject(ctx context.Context, key string, fields map[string]any) {
	if err := s.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		fields["storage_key"] = key
		fields["error"] = err.Error()
		telemetry.Warn("documents.discard_object_failed", fields)
		delete(fields, "error")
	}
}

// List returns the owner's documents with reminders and signed file URLs.
func (s *Service) List(ctx context.Context, userID string) ([]Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	docs, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, userID, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Document, error) {
	doc, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Document{}, err
	}
	docs := []Document{doc}
	if err := s.hydrate(ctx, userID, docs); err != nil {
		return Document{}, err
	}
	return docs[0], nil
}

func (s *Service) hydrate(ctx context.Context, userID string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	grouped, err := s.Reminders.ListByDocuments(ctx, userID, ids)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	for i := range docs {
		docs[i].Reminders = grouped[docs[i].ID]
		if docs[i].Reminders == nil {
			docs[i].Reminders = []reminders.Reminder{}
		}
		docs[i].FileURL = s.signedURL(ctx, docs[i])
	}
	return nil
}

func (s *Service) signedURL(ctx context.Context, doc Document) string {
	if doc.StorageKey == "" {
		return ""
	}
	url, err := s.Store.SignedURL(ctx, doc.StorageKey, s.SignedURLTTL)
	if err != nil {
		telemetry.Warn("documents.signed_url_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return ""
	}
	return url
}

// FileURL resolves a fresh signed URL for the document's stored file.
func (s *Service) FileURL(ctx context.Context, userID, id string) (string, error) {
	doc, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if doc.StorageKey == "" {
		return "", ErrNotFound
	}
	return s.Store.SignedURL(ctx, doc.StorageKey, s.SignedURLTTL)
}

// ReminderInput replaces one document reminder on update.
type ReminderInput struct {
	Title       string
	Description string
	Date        string
	Time        string
	Priority    string
	Completed   bool
}

// Patch updates only the non-nil fields. A non-nil Reminders replaces the document's reminder set.
type Patch struct {
	Title           *string
	Category        *string
	Summary         *string
	EventDate       *string
	EventTime       *string
	ExpiryDate      *string
	Location        *string
	ReferenceNumber *string
	Reminders       *[]ReminderInput
}

func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (Document, error) {
	doc, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Document{}, err
	}
	if err := applyPatch(&doc.Metadata, p); err != nil {
		return Document{}, err
	}
	now := s.now().UTC()
	doc.UpdatedAt = now

	var rs []reminders.Reminder
	if p.Reminders != nil {
		rs, err = buildReminders(doc, *p.Reminders, now)
		if err != nil {
			return Document{}, err
		}
	} else {
		grouped, err := s.Reminders.ListByDocuments(ctx, userID, []string{id})
		if err != nil {
			return Document{}, fmt.Errorf("load reminders: %w", err)
		}
		for _, rm := range grouped[id] {
			if rm.Source == reminders.SourceDocument {
				rs = append(rs, rm)
			}
		}
	}

	if err := s.Repo.Save(ctx, doc, rs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, err
		}
		return Document{}, &PersistenceError{Op: "update", Err: err}
	}
	s.invalidate(ctx, userID)
	telemetry.Info("documents.updated", map[string]any{
		"user_id":           userID,
		"document_id":       id,
		"reminders_replace": p.Reminders != nil,
	})
	return s.Get(ctx, userID, id)
}

func applyPatch(m *Metadata, p Patch) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&m.Title, p.Title)
	set(&m.Summary, p.Summary)
	set(&m.EventDate, p.EventDate)
	set(&m.EventTime, p.EventTime)
	set(&m.ExpiryDate, p.ExpiryDate)
	set(&m.Location, p.Location)
	set(&m.ReferenceNumber, p.ReferenceNumber)
	if p.Category != nil {
		c, ok := extraction.ParseCategory(*p.Category)
		if !ok {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *p.Category)
		}
		m.Category = c
	}
	switch {
	case m.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !extraction.ValidDate(m.EventDate, true):
		return fmt.Errorf("%w: eventDate must be YYYY-MM-DD", ErrInvalidInput)
	case !extraction.ValidTime(m.EventTime, true):
		return fmt.Errorf("%w: eventTime must be HH:MM", ErrInvalidInput)
	case !extraction.ValidDate(m.ExpiryDate, true):
		return fmt.Errorf("%w: expiryDate must be YYYY-MM-DD", ErrInvalidInput)
	}
	return nil
}

func buildReminders(doc Document, in []ReminderInput, now time.Time) ([]reminders.Reminder, error) {
	out := make([]reminders.Reminder, 0, len(in))
	for i, r := range in {
		priority := extraction.PriorityMedium
		if strings.TrimSpace(r.Priority) != "" {
			parsed, ok := extraction.ParsePriority(r.Priority)
			if !ok {
				return nil, fmt.Errorf("%w: reminders[%d] priority must be high, medium or low", ErrInvalidInput, i)
			}
			priority = parsed
		}
		rm := reminders.Reminder{
			ID:          uuid.NewString(),
			UserID:      doc.UserID,
			DocumentID:  doc.ID,
			Source:      reminders.SourceDocument,
			Title:       strings.TrimSpace(r.Title),
			Description: strings.TrimSpace(r.Description),
			Date:        strings.TrimSpace(r.Date),
			Time:        strings.TrimSpace(r.Time),
			Priority:    reminders.Priority(priority),
			Completed:   r.Completed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if rm.Title == "" || !extraction.ValidDate(rm.Date, false) || !extraction.ValidTime(rm.Time, true) {
			return nil, fmt.Errorf("%w: reminders[%d] needs a title, a YYYY-MM-DD date and an optional HH:MM time", ErrInvalidInput, i)
		}
		out = append(out, rm)
	}
	return out, nil
}

// Delete removes the row (reminders cascade) and then the stored object. A
// storage failure is logged, counted and queued for cleanup, never returned.
func (s *Service) Delete(ctx context.Context, userID, id, requestID string) error {
	doc, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &PersistenceError{Op: "delete", Err: err}
	}
	s.invalidate(ctx, userID)
	telemetry.Info("documents.deleted", map[string]any{
		"user_id":     userID,
		"document_id": id,
		"request_id":  requestID,
	})

	if doc.StorageKey == "" {
		return nil
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		s.storageDeleteFailed(ctx, doc, requestID, err)
	}
	return nil
}

func (s *Service) storageDeleteFailed(ctx context.Context, doc Document, requestID string, cause error) {
	metrics.IncStorageDeleteFailure()
	fields := map[string]any{
		"user_id":     doc.UserID,
		"document_id": doc.ID,
		"storage_key": doc.StorageKey,
		"request_id":  requestID,
		"error":       cause.Error(),
		"queued":      false,
	}
	if s.Queue != nil {
		msg := queue.NewStorageDelete(doc.StorageKey, doc.UserID, doc.ID, requestID, s.now())
		if err := s.Queue.Send(context.WithoutCancel(ctx), msg); err != nil {
			fields["queue_error"] = err.Error()
		} else {
			fields["queued"] = true
		}
	}
	telemetry.Error("documents.storage_delete_failed", fields)
}

// ClaimGuest moves a guest's documents to the authenticated user. Guest copies
// of files the user already owns are deleted instead of moved.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID, requestID string) (int, error) {
	guestDocs, err := s.Repo.ListByUser(ctx, guestUserID)
	if err != nil {
		return 0, err
	}
	for _, doc := range guestDocs {
		if _, err := s.Repo.FindByFingerprint(ctx, authedUserID, doc.Fingerprint); err == nil {
			if err := s.Delete(ctx, guestUserID, doc.ID, requestID); err != nil && !errors.Is(err, ErrNotFound) {
				return 0, err
			}
		} else if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
	}
	n, err := s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, guestUserID)
	s.invalidate(ctx, authedUserID)
	return n, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, userID)
	}
}

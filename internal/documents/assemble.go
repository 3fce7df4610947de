package documents

import (
	"time"

	"github.com/google/uuid"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/normalize"
	"traveldocs-backend/internal/reminders"
)

type assembleInput struct {
	ID              string
	UserID          string
	FileName        string
	SizeBytes       int64
	Fingerprint     string
	Language        string
	StorageProvider string
	StorageKey      string
	Normalized      normalize.Result
	Extracted       extraction.Result
	Now             time.Time
}

// assemble builds the document record and its document-sourced reminders.
func assemble(in assembleInput) (Document, []reminders.Reminder) {
	ex := in.Extracted
	doc := Document{
		ID:              in.ID,
		UserID:          in.UserID,
		FileName:        in.FileName,
		MimeType:        in.Normalized.PayloadMimeType,
		SizeBytes:       in.SizeBytes,
		Fingerprint:     in.Fingerprint,
		StorageProvider: in.StorageProvider,
		StorageKey:      in.StorageKey,
		Preview:         in.Normalized.Preview,
		Metadata: Metadata{
			Category:           ex.Category,
			CategoryConfidence: ex.CategoryConfidence,
			Title:              ex.Title,
			Summary:            ex.Summary,
			EventDate:          ex.EventDate,
			EventTime:          ex.EventTime,
			ExpiryDate:         ex.ExpiryDate,
			Location:           ex.Location,
			ReferenceNumber:    ex.ReferenceNumber,
			KeyDetails:         ex.KeyDetails,
			Policies:           ex.Policies,
			RiskAssessment:     ex.RiskAssessment,
			Language:           in.Language,
			Modality:           string(in.Normalized.Modality),
		},
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}
	if in.Normalized.IsText() {
		doc.Content = in.Normalized.Text
	}
	if doc.Metadata.Category == "" {
		doc.Metadata.Category = extraction.CategoryOther
	}

	rs := make([]reminders.Reminder, 0, len(ex.Reminders))
	for _, draft := range ex.Reminders {
		rs = append(rs, reminders.Reminder{
			ID:          uuid.NewString(),
			UserID:      in.UserID,
			DocumentID:  in.ID,
			Source:      reminders.SourceDocument,
			Title:       draft.Title,
			Description: draft.Description,
			Date:        draft.Date,
			Time:        draft.Time,
			Priority:    reminders.Priority(draft.Priority),
			CreatedAt:   in.Now,
			UpdatedAt:   in.Now,
		})
	}
	return doc, rs
}

// Package export renders a user's documents and reminders as iCalendar and xlsx.
package export

import (
	"context"
	"fmt"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/reminders"
)

type DocumentLister interface {
	ListByUser(ctx context.Context, userID string) ([]documents.Document, error)
}

type ReminderLister interface {
	ListByUser(ctx context.Context, userID string) ([]reminders.Reminder, error)
}

type Service struct {
	Documents DocumentLister
	Reminders ReminderLister
}

func NewService(docs DocumentLister, rems ReminderLister) *Service {
	return &Service{Documents: docs, Reminders: rems}
}

func (s *Service) load(ctx context.Context, userID string) ([]documents.Document, []reminders.Reminder, error) {
	docs, err := s.Documents.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}
	rems, err := s.Reminders.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load reminders: %w", err)
	}
	return docs, rems, nil
}

func (s *Service) Calendar(ctx context.Context, userID string) ([]byte, error) {
	docs, rems, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []byte(BuildCalendar(docs, rems)), nil
}

func (s *Service) Workbook(ctx context.Context, userID string) ([]byte, error) {
	docs, rems, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildWorkbook(docs, rems)
}

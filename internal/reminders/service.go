package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/shared/telemetry"
)

// Invalidator drops cached per-user views after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) {}

type Service struct {
	Repo  Repo
	Cache Invalidator
	now   func() time.Time
}

func NewService(repo Repo, cache Invalidator) *Service {
	if cache == nil {
		cache = nopInvalidator{}
	}
	return &Service{Repo: repo, Cache: cache, now: time.Now}
}

// Input carries the fields of a manual reminder.
type Input struct {
	Title       string
	Description string
	Date        string
	Time        string
	Priority    string
}

// Patch updates only the non-nil fields.
type Patch struct {
	Title       *string
	Description *string
	Date        *string
	Time        *string
	Priority    *string
	Completed   *bool
}

func (s *Service) List(ctx context.Context, userID string) ([]Reminder, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID)
}

func (s *Service) CreateManual(ctx context.Context, userID string, in Input) (Reminder, error) {
	if strings.TrimSpace(userID) == "" {
		return Reminder{}, ErrInvalidInput
	}
	priority := Priority(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = PriorityMedium
	}
	now := s.now().UTC()
	rm := Reminder{
		ID:          uuid.NewString(),
		UserID:      userID,
		Source:      SourceManual,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Date:        strings.TrimSpace(in.Date),
		Time:        strings.TrimSpace(in.Time),
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate(rm); err != nil {
		return Reminder{}, err
	}
	if err := s.Repo.Create(ctx, rm); err != nil {
		return Reminder{}, err
	}
	s.Cache.Invalidate(ctx, userID)
	telemetry.Info("reminders.created", map[string]any{
		"user_id":     userID,
		"reminder_id": rm.ID,
		"source":      string(rm.Source),
	})
	return rm, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (Reminder, error) {
	rm, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Reminder{}, err
	}
	if p.Title != nil {
		rm.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		rm.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		rm.Date = strings.TrimSpace(*p.Date)
	}
	if p.Time != nil {
		rm.Time = strings.TrimSpace(*p.Time)
	}
	if p.Priority != nil {
		rm.Priority = Priority(strings.TrimSpace(*p.Priority))
	}
	if p.Completed != nil {
		rm.Completed = *p.Completed
	}
	if err := validate(rm); err != nil {
		return Reminder{}, err
	}
	rm.UpdatedAt = s.now().UTC()
	if err := s.Repo.Update(ctx, rm); err != nil {
		return Reminder{}, err
	}
	s.Cache.Invalidate(ctx, userID)
	return rm, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, userID)
	telemetry.Info("reminders.deleted", map[string]any{
		"user_id":     userID,
		"reminder_id": id,
	})
	return nil
}

func validate(rm Reminder) error {
	switch {
	case rm.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !extraction.ValidDate(rm.Date, false):
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	case !extraction.ValidTime(rm.Time, true):
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidInput)
	case !rm.Priority.Valid():
		return fmt.Errorf("%w: priority must be High, Medium or Low", ErrInvalidInput)
	}
	return nil
}

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"traveldocs-backend/internal/shared/telemetry"
)

const guestPrefix = "guest:"

type documentClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID, requestID string) (int, error)
}

type reminderClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

type usageClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) error
}

type Service struct {
	Documents documentClaimer
	Reminders reminderClaimer
	// Usage is optional.
	Usage usageClaimer
}

// ClaimRequest names the signed-in caller and the raw guest id from the client.
type ClaimRequest struct {
	UserID    string
	Guest     bool
	GuestID   string
	RequestID string
}

type ClaimResult struct {
	MigratedDocuments int `json:"migratedDocuments"`
	MigratedReminders int `json:"migratedReminders"`
}

func NewService(docs documentClaimer, rems reminderClaimer, usage usageClaimer) *Service {
	return &Service{Documents: docs, Reminders: rems, Usage: usage}
}

// ClaimGuest moves guest documents first so duplicates of files the user
// already owns are dropped with their reminders, then moves the remaining
// reminders and the consumed quota. Repeating the call is a no-op.
func (s *Service) ClaimGuest(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	authedUserID := strings.TrimSpace(req.UserID)
	if req.Guest || authedUserID == "" || strings.HasPrefix(authedUserID, guestPrefix) {
		return ClaimResult{}, ErrLoginRequired
	}
	guestID := strings.TrimSpace(req.GuestID)
	if guestID == "" {
		return ClaimResult{}, ErrMissingGuestID
	}
	if _, err := uuid.Parse(guestID); err != nil {
		return ClaimResult{}, fmt.Errorf("%w: %v", ErrInvalidGuestID, err)
	}
	guestUserID := guestPrefix + guestID
	requestID := req.RequestID

	docCount, err := s.Documents.ClaimGuest(ctx, guestUserID, authedUserID, requestID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim documents: %w", err)
	}
	reminderCount, err := s.Reminders.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim reminders: %w", err)
	}
	if s.Usage != nil {
		if err := s.Usage.ClaimGuest(ctx, guestUserID, authedUserID); err != nil {
			return ClaimResult{}, fmt.Errorf("claim usage: %w", err)
		}
	}

	telemetry.Info("account.guest_claimed", map[string]any{
		"user_id":    authedUserID,
		"guest_id":   guestUserID,
		"request_id": requestID,
		"documents":  docCount,
		"reminders":  reminderCount,
	})
	return ClaimResult{MigratedDocuments: docCount, MigratedReminders: reminderCount}, nil
}

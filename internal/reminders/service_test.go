package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct{ users []string }

func (c *countingInvalidator) Invalidate(_ context.Context, userID string) {
	c.users = append(c.users, userID)
}

func newTestService() (*Service, *MemoryRepo, *countingInvalidator) {
	repo := NewMemoryRepo()
	inv := &countingInvalidator{}
	svc := NewService(repo, inv)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo, inv
}

func ptr[T any](v T) *T { return &v }

func TestCreateManualValidates(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
	}{
		{name: "missing title", in: Input{Date: "2025-03-01"}},
		{name: "bad date", in: Input{Title: "x", Date: "01.03.2025"}},
		{name: "bad time", in: Input{Title: "x", Date: "2025-03-01", Time: "2pm"}},
		{name: "bad priority", in: Input{Title: "x", Date: "2025-03-01", Priority: "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateManual(ctx, "user-1", tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCreateManualDefaultsAndInvalidates(t *testing.T) {
	svc, repo, inv := newTestService()
	ctx := context.Background()

	rm, err := svc.CreateManual(ctx, "user-1", Input{Title: " Pay deposit ", Date: "2025-03-01", Time: "09:30"})
	require.NoError(t, err)
	assert.Equal(t, "Pay deposit", rm.Title)
	assert.Equal(t, PriorityMedium, rm.Priority)
	assert.Equal(t, SourceManual, rm.Source)
	assert.Empty(t, rm.DocumentID)
	assert.Equal(t, []string{"user-1"}, inv.users)

	stored, err := repo.Get(ctx, "user-1", rm.ID)
	require.NoError(t, err)
	assert.Equal(t, rm, stored)
}

func TestListSortsByDue(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, in := range []Input{
		{Title: "b", Date: "2025-03-02"},
		{Title: "c", Date: "2025-03-01", Time: "14:00"},
		{Title: "a", Date: "2025-03-01", Time: "12:00"},
	} {
		_, err := svc.CreateManual(ctx, "user-1", in)
		require.NoError(t, err)
	}
	_, err := svc.CreateManual(ctx, "user-2", Input{Title: "other", Date: "2024-01-01"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{list[0].Title, list[1].Title, list[2].Title})
}

func TestUpdateAppliesPatch(t *testing.T) {
	svc, _, inv := newTestService()
	ctx := context.Background()
	rm, err := svc.CreateManual(ctx, "user-1", Input{Title: "Check in", Date: "2025-03-01"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC) }
	updated, err := svc.Update(ctx, "user-1", rm.ID, Patch{Completed: ptr(true), Priority: ptr("High")})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, PriorityHigh, updated.Priority)
	assert.Equal(t, "Check in", updated.Title)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.Len(t, inv.users, 2)

	_, err = svc.Update(ctx, "user-1", rm.ID, Patch{Date: ptr("")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateOtherOwnerIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	rm, err := svc.CreateManual(ctx, "user-1", Input{Title: "x", Date: "2025-03-01"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "user-2", rm.ID, Patch{Completed: ptr(true)})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, svc.Delete(ctx, "user-2", rm.ID), ErrNotFound)
}

func TestDeleteByDocumentKeepsManualReminders(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	manual, err := svc.CreateManual(ctx, "user-1", Input{Title: "manual", Date: "2025-03-01"})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceForDocument(ctx, "user-1", "doc-1", []Reminder{
		{ID: "d-1", UserID: "user-1", DocumentID: "doc-1", Source: SourceDocument, Title: "doc", Date: "2025-03-01", Priority: PriorityHigh},
	}))

	require.NoError(t, repo.DeleteByDocument(ctx, "user-1", "doc-1"))

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, manual.ID, list[0].ID)
}

func TestReminderAt(t *testing.T) {
	timed := Reminder{Date: "2025-03-01", Time: "12:00"}
	at, ok := timed.At(time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), at)

	allDay := Reminder{Date: "2025-03-01"}
	at, ok = allDay.At(time.UTC)
	require.True(t, ok)
	assert.Equal(t, 0, at.Hour())

	_, ok = Reminder{Date: "soon"}.At(time.UTC)
	assert.False(t, ok)
}

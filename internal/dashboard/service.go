// Package dashboard builds the per-user overview of documents, upcoming
// reminders, expiring documents and the dated timeline.
package dashboard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/reminders"
	"traveldocs-backend/internal/shared/storage/cache"
	"traveldocs-backend/internal/shared/telemetry"
)

const (
	defaultTTL      = 5 * time.Minute
	upcomingLimit   = 10
	expiryWindowDay = 90
)

var ErrInvalidInput = errors.New("invalid input")

type DocumentLister interface {
	ListByUser(ctx context.Context, userID string) ([]documents.Document, error)
}

type ReminderLister interface {
	ListByUser(ctx context.Context, userID string) ([]reminders.Reminder, error)
}

// Service builds snapshots and caches them per user until a mutation invalidates them.
type Service struct {
	Documents DocumentLister
	Reminders ReminderLister
	Cache     cache.Store
	TTL       time.Duration

	now func() time.Time
}

func NewService(docs DocumentLister, rems ReminderLister, store cache.Store) *Service {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &Service{
		Documents: docs,
		Reminders: rems,
		Cache:     store,
		TTL:       defaultTTL,
		now:       time.Now,
	}
}

func cacheKey(userID string) string { return "dashboard:" + userID }

// Snapshot returns the cached snapshot or rebuilds it from the repositories.
func (s *Service) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, ErrInvalidInput
	}
	var snap Snapshot
	found, err := s.Cache.Get(ctx, cacheKey(userID), &snap)
	if err != nil {
		telemetry.Warn("dashboard.cache_get_failed", map[string]any{"user_id": userID, "error": err.Error()})
	} else if found {
		return snap, nil
	}

	snap, err = s.build(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.Cache.Set(ctx, cacheKey(userID), snap, s.TTL); err != nil {
		telemetry.Warn("dashboard.cache_set_failed", map[string]any{"user_id": userID, "error": err.Error()})
	}
	return snap, nil
}

// Timeline returns entries with from <= date <= to. Empty bounds are open.
func (s *Service) Timeline(ctx context.Context, userID, from, to string) ([]TimelineEntry, error) {
	if !extraction.ValidDate(from, true) || !extraction.ValidDate(to, true) {
		return nil, ErrInvalidInput
	}
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]TimelineEntry, 0, len(snap.Timeline))
	for _, e := range snap.Timeline {
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Invalidate drops the cached snapshot. Failures are logged; the TTL bounds staleness.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if err := s.Cache.Delete(context.WithoutCancel(ctx), cacheKey(userID)); err != nil {
		telemetry.Warn("dashboard.cache_invalidate_failed", map[string]any{"user_id": userID, "error": err.Error()})
	}
}

func (s *Service) build(ctx context.Context, userID string) (Snapshot, error) {
	docs, err := s.Documents.ListByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	rems, err := s.Reminders.ListByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	now := s.now().UTC()
	return buildSnapshot(userID, docs, rems, now), nil
}

func buildSnapshot(userID string, docs []documents.Document, rems []reminders.Reminder, now time.Time) Snapshot {
	today := now.Format(extraction.DateLayout)
	horizon := now.AddDate(0, 0, expiryWindowDay).Format(extraction.DateLayout)

	snap := Snapshot{
		UserID:            userID,
		GeneratedAt:       now,
		TotalDocuments:    len(docs),
		Categories:        []CategoryCount{},
		UpcomingReminders: []UpcomingReminder{},
		ExpiringDocuments: []ExpiringDocument{},
		Timeline:          []TimelineEntry{},
	}

	counts := map[extraction.Category]int{}
	for _, d := range docs {
		m := d.Metadata
		counts[m.Category]++
		if m.EventDate != "" {
			snap.Timeline = append(snap.Timeline, TimelineEntry{
				Kind:       KindEvent,
				Date:       m.EventDate,
				Time:       m.EventTime,
				Title:      m.Title,
				DocumentID: d.ID,
				Category:   string(m.Category),
				Location:   m.Location,
			})
		}
		if m.ExpiryDate != "" {
			snap.Timeline = append(snap.Timeline, TimelineEntry{
				Kind:       KindExpiry,
				Date:       m.ExpiryDate,
				Title:      m.Title,
				DocumentID: d.ID,
				Category:   string(m.Category),
			})
			if m.ExpiryDate >= today && m.ExpiryDate <= horizon {
				snap.ExpiringDocuments = append(snap.ExpiringDocuments, ExpiringDocument{
					ID:         d.ID,
					Title:      m.Title,
					Category:   string(m.Category),
					ExpiryDate: m.ExpiryDate,
					DaysLeft:   daysBetween(today, m.ExpiryDate),
				})
			}
		}
	}
	for _, c := range extraction.Categories {
		if n := counts[c]; n > 0 {
			snap.Categories = append(snap.Categories, CategoryCount{Category: string(c), Count: n})
		}
	}

	sorted := append([]reminders.Reminder(nil), rems...)
	reminders.SortByDue(sorted)
	for _, r := range sorted {
		snap.Timeline = append(snap.Timeline, TimelineEntry{
			Kind:       KindReminder,
			Date:       r.Date,
			Time:       r.Time,
			Title:      r.Title,
			DocumentID: r.DocumentID,
			ReminderID: r.ID,
			Completed:  r.Completed,
		})
		if !r.Completed && r.Date >= today && len(snap.UpcomingReminders) < upcomingLimit {
			snap.UpcomingReminders = append(snap.UpcomingReminders, UpcomingReminder{
				ID:         r.ID,
				DocumentID: r.DocumentID,
				Title:      r.Title,
				Date:       r.Date,
				Time:       r.Time,
				Priority:   string(r.Priority),
			})
		}
	}

	sort.SliceStable(snap.ExpiringDocuments, func(i, j int) bool {
		return snap.ExpiringDocuments[i].ExpiryDate < snap.ExpiringDocuments[j].ExpiryDate
	})
	// All-day entries sort before timed ones on the same date.
	sort.SliceStable(snap.Timeline, func(i, j int) bool {
		a, b := snap.Timeline[i], snap.Timeline[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Time < b.Time
	})
	return snap
}

func daysBetween(from, to string) int {
	a, err1 := time.Parse(extraction.DateLayout, from)
	b, err2 := time.Parse(extraction.DateLayout, to)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

var _ reminders.Invalidator = (*Service)(nil)

package reminders

import (
	"sort"
	"time"
)

type Source string

const (
	SourceDocument Source = "document"
	SourceManual   Source = "manual"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Reminder is a dated obligation. Document-sourced reminders carry the parent
// DocumentID and are removed with it; manual ones have no parent.
type Reminder struct {
	ID          string
	UserID      string
	DocumentID  string
	Source      Source
	Title       string
	Description string
	Date        string
	Time        string
	Priority    Priority
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// At returns the reminder's moment in loc; all-day reminders resolve to midnight.
func (r Reminder) At(loc *time.Location) (time.Time, bool) {
	layout, value := "2006-01-02", r.Date
	if r.Time != "" {
		layout, value = "2006-01-02 15:04", r.Date+" "+r.Time
	}
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SortByDue orders by date, then time, then title.
func SortByDue(rs []Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Title < b.Title
	})
}

package dashboard

import "time"

// Entry kinds on the timeline.
const (
	KindEvent    = "event"
	KindExpiry   = "expiry"
	KindReminder = "reminder"
)

type CategoryCount struct {
	Category string `json:"category" msgpack:"category"`
	Count    int    `json:"count" msgpack:"count"`
}

type UpcomingReminder struct {
	ID         string `json:"id" msgpack:"id"`
	DocumentID string `json:"documentId,omitempty" msgpack:"documentId"`
	Title      string `json:"title" msgpack:"title"`
	Date       string `json:"date" msgpack:"date"`
	Time       string `json:"time,omitempty" msgpack:"time"`
	Priority   string `json:"priority" msgpack:"priority"`
}

type ExpiringDocument struct {
	ID         string `json:"id" msgpack:"id"`
	Title      string `json:"title" msgpack:"title"`
	Category   string `json:"category" msgpack:"category"`
	ExpiryDate string `json:"expiryDate" msgpack:"expiryDate"`
	DaysLeft   int    `json:"daysLeft" msgpack:"daysLeft"`
}

// TimelineEntry is one dated item: a document event, an expiry or a reminder.
type TimelineEntry struct {
	Kind       string `json:"kind" msgpack:"kind"`
	Date       string `json:"date" msgpack:"date"`
	Time       string `json:"time,omitempty" msgpack:"time"`
	Title      string `json:"title" msgpack:"title"`
	DocumentID string `json:"documentId,omitempty" msgpack:"documentId"`
	ReminderID string `json:"reminderId,omitempty" msgpack:"reminderId"`
	Category   string `json:"category,omitempty" msgpack:"category"`
	Location   string `json:"location,omitempty" msgpack:"location"`
	Completed  bool   `json:"completed,omitempty" msgpack:"completed"`
}

// Snapshot is the per-user dashboard state served to the UI.
type Snapshot struct {
	UserID            string             `json:"-" msgpack:"userId"`
	GeneratedAt       time.Time          `json:"generatedAt" msgpack:"generatedAt"`
	TotalDocuments    int                `json:"totalDocuments" msgpack:"totalDocuments"`
	Categories        []CategoryCount    `json:"categories" msgpack:"categories"`
	UpcomingReminders []UpcomingReminder `json:"upcomingReminders" msgpack:"upcomingReminders"`
	ExpiringDocuments []ExpiringDocument `json:"expiringDocuments" msgpack:"expiringDocuments"`
	Timeline          []TimelineEntry    `json:"timeline" msgpack:"timeline"`
}

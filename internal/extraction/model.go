package extraction

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryVisa        Category = "Visa"
	CategoryPassport    Category = "Passport"
	CategoryInsurance   Category = "Insurance"
	CategoryTicket      Category = "Ticket"
	CategoryContract    Category = "Contract"
	CategoryReservation Category = "Reservation"
	CategoryID          Category = "ID"
	CategoryOther       Category = "Other"
)

var Categories = []Category{
	CategoryVisa, CategoryPassport, CategoryInsurance, CategoryTicket,
	CategoryContract, CategoryReservation, CategoryID, CategoryOther,
}

// ParseCategory matches case-insensitively.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Priority string

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "urgent", "critical":
		return PriorityHigh, true
	case "medium", "normal":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return "", false
}

type Risk struct {
	Score   int      `json:"score"`
	Factors []string `json:"factors"`
}

// ReminderDraft is a reminder proposed by the model, before it gets an id and owner.
type ReminderDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Priority    Priority `json:"priority"`
}

// Result is the validated extraction output.
type Result struct {
	Category           Category        `json:"category"`
	CategoryConfidence float64         `json:"categoryConfidence"`
	Title              string          `json:"title"`
	Summary            string          `json:"summary"`
	EventDate          string          `json:"eventDate"`
	EventTime          string          `json:"eventTime"`
	ExpiryDate         string          `json:"expiryDate"`
	Location           string          `json:"location"`
	ReferenceNumber    string          `json:"referenceNumber"`
	KeyDetails         []string        `json:"keyDetails"`
	Policies           []string        `json:"policies"`
	RiskAssessment     *Risk           `json:"riskAssessment"`
	Reminders          []ReminderDraft `json:"reminders"`
}

// Request is one extraction call. Exactly one of Text or ImageBase64 is used, chosen by IsText.
type Request struct {
	Text          string
	ImageBase64   string
	ImageMimeType string
	IsText        bool
	Language      string
	Now           time.Time
	FileName      string
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

package documents

import (
	"time"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/reminders"
)

// Metadata is the extracted record stored as the documents.metadata JSON blob.
// Category, Title, EventDate and ExpiryDate are also flattened into columns.
type Metadata struct {
	Category           extraction.Category `json:"category"`
	CategoryConfidence float64             `json:"categoryConfidence"`
	Title              string              `json:"title"`
	Summary            string              `json:"summary"`
	EventDate          string              `json:"eventDate,omitempty"`
	EventTime          string              `json:"eventTime,omitempty"`
	ExpiryDate         string              `json:"expiryDate,omitempty"`
	Location           string              `json:"location,omitempty"`
	ReferenceNumber    string              `json:"referenceNumber,omitempty"`
	KeyDetails         []string            `json:"keyDetails"`
	Policies           []string            `json:"policies"`
	RiskAssessment     *extraction.Risk    `json:"riskAssessment,omitempty"`
	Language           string              `json:"language"`
	Modality           string              `json:"modality"`
}

// Document is an uploaded travel document owned by a user.
type Document struct {
	ID          string
	UserID      string
	FileName    string
	MimeType    string
	SizeBytes   int64
	Fingerprint string

	StorageProvider string
	StorageKey      string
	// Content holds the extracted text when the text modality was used.
	Content string
	Preview string

	Metadata Metadata

	// FileURL and Reminders are resolved on read.
	FileURL   string
	Reminders []reminders.Reminder

	CreatedAt time.Time
	UpdatedAt time.Time
}

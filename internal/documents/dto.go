package documents

import (
	"time"

	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/reminders"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID                 string               `json:"id"`
	FileName           string               `json:"fileName"`
	MimeType           string               `json:"mimeType"`
	SizeBytes          int64                `json:"sizeBytes"`
	Fingerprint        string               `json:"fingerprint"`
	Category           extraction.Category  `json:"category"`
	CategoryConfidence float64              `json:"categoryConfidence"`
	Title              string               `json:"title"`
	Summary            string               `json:"summary"`
	EventDate          string               `json:"eventDate,omitempty"`
	EventTime          string               `json:"eventTime,omitempty"`
	ExpiryDate         string               `json:"expiryDate,omitempty"`
	Location           string               `json:"location,omitempty"`
	ReferenceNumber    string               `json:"referenceNumber,omitempty"`
	KeyDetails         []string             `json:"keyDetails"`
	Policies           []string             `json:"policies"`
	RiskAssessment     *extraction.Risk     `json:"riskAssessment,omitempty"`
	Language           string               `json:"language"`
	Modality           string               `json:"modality"`
	Content            string               `json:"content,omitempty"`
	Preview            string               `json:"preview,omitempty"`
	FileURL            string               `json:"fileUrl,omitempty"`
	Reminders          []reminders.Response `json:"reminders"`
	UploadedAt         time.Time            `json:"uploadedAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

func toResponse(doc Document) DocumentResponse {
	m := doc.Metadata
	keyDetails, policies := m.KeyDetails, m.Policies
	if keyDetails == nil {
		keyDetails = []string{}
	}
	if policies == nil {
		policies = []string{}
	}
	return DocumentResponse{
		ID:                 doc.ID,
		FileName:           doc.FileName,
		MimeType:           doc.MimeType,
		SizeBytes:          doc.SizeBytes,
		Fingerprint:        doc.Fingerprint,
		Category:           m.Category,
		CategoryConfidence: m.CategoryConfidence,
		Title:              m.Title,
		Summary:            m.Summary,
		EventDate:          m.EventDate,
		EventTime:          m.EventTime,
		ExpiryDate:         m.ExpiryDate,
		Location:           m.Location,
		ReferenceNumber:    m.ReferenceNumber,
		KeyDetails:         keyDetails,
		Policies:           policies,
		RiskAssessment:     m.RiskAssessment,
		Language:           m.Language,
		Modality:           m.Modality,
		Content:            doc.Content,
		Preview:            doc.Preview,
		FileURL:            doc.FileURL,
		Reminders:          reminders.ToResponses(doc.Reminders),
		UploadedAt:         doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
}

type reminderRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed"`
}

type updateRequest struct {
	Title           *string            `json:"title"`
	Category        *string            `json:"category"`
	Summary         *string            `json:"summary"`
	EventDate       *string            `json:"eventDate"`
	EventTime       *string            `json:"eventTime"`
	ExpiryDate      *string            `json:"expiryDate"`
	Location        *string            `json:"location"`
	ReferenceNumber *string            `json:"referenceNumber"`
	Reminders       *[]reminderRequest `json:"reminders"`
}

func (r updateRequest) toPatch() Patch {
	p := Patch{
		Title:           r.Title,
		Category:        r.Category,
		Summary:         r.Summary,
		EventDate:       r.EventDate,
		EventTime:       r.EventTime,
		ExpiryDate:      r.ExpiryDate,
		Location:        r.Location,
		ReferenceNumber: r.ReferenceNumber,
	}
	if r.Reminders != nil {
		in := make([]ReminderInput, 0, len(*r.Reminders))
		for _, rm := range *r.Reminders {
			in = append(in, ReminderInput(rm))
		}
		p.Reminders = &in
	}
	return p
}

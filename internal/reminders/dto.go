package reminders

import "time"

// Response is the wire form of a reminder.
type Response struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId,omitempty"`
	Source      Source    `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Time        string    `json:"time,omitempty"`
	Priority    Priority  `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func ToResponse(rm Reminder) Response {
	return Response{
		ID:          rm.ID,
		DocumentID:  rm.DocumentID,
		Source:      rm.Source,
		Title:       rm.Title,
		Description: rm.Description,
		Date:        rm.Date,
		Time:        rm.Time,
		Priority:    rm.Priority,
		Completed:   rm.Completed,
		CreatedAt:   rm.CreatedAt,
		UpdatedAt:   rm.UpdatedAt,
	}
}

func ToResponses(rs []Reminder) []Response {
	out := make([]Response, 0, len(rs))
	for _, rm := range rs {
		out = append(out, ToResponse(rm))
	}
	return out
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Priority    string `json:"priority"`
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Priority    *string `json:"priority"`
	Completed   *bool   `json:"completed"`
}

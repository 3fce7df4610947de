package chat

import "time"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one chat turn. History lives on the client and is sent with each request.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Request struct {
	UserID   string
	Message  string
	History  []Message
	Language string
}

package queue

import (
	"encoding/json"
	"time"
)

// KindStorageDelete asks the worker to retry removing an orphaned storage object.
const KindStorageDelete = "storage.delete"

const messageVersion = 1

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Kind       string `json:"kind"`
	StorageKey string `json:"storageKey"`
	UserID     string `json:"userId,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewStorageDelete builds a cleanup message stamped with now.
func NewStorageDelete(storageKey, userID, documentID, requestID string, now time.Time) Message {
	return Message{
		Kind:       KindStorageDelete,
		StorageKey: storageKey,
		UserID:     userID,
		DocumentID: documentID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    messageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

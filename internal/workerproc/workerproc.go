package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"traveldocs-backend/internal/queue"
	"traveldocs-backend/internal/shared/storage/object"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrUnknownKind marks a message this worker does not handle.
type ErrUnknownKind struct {
	Meta MessageMeta
	Kind string
}

func (e ErrUnknownKind) Error() string { return "unknown message kind " + e.Kind }

// ErrMissingStorageKey indicates a cleanup message without a key.
type ErrMissingStorageKey struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingStorageKey) Error() string { return "missing storage key" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	StorageKey string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process cleanup"
	}
	return "process cleanup: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Kind != queue.KindStorageDelete {
		return msg, meta, ErrUnknownKind{Meta: meta, Kind: msg.Kind}
	}
	if strings.TrimSpace(msg.StorageKey) == "" {
		return msg, meta, ErrMissingStorageKey{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Deleter removes stored objects.
type Deleter interface {
	Delete(ctx context.Context, storageKey string) error
}

// Process retries the storage deletion described by msg. An object that is
// already gone counts as done.
func Process(ctx context.Context, store Deleter, msg queue.Message) error {
	if store == nil {
		return errors.New("object store not configured")
	}
	if err := store.Delete(ctx, msg.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		return ErrProcess{StorageKey: msg.StorageKey, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, store Deleter, body string) error {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return Process(ctx, store, msg)
}

// Package llm defines the provider-neutral chat completion contract used by
// document extraction and the chat assistant.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part is one element of a multimodal message.
type Part struct {
	Text        string
	ImageMIME   string
	ImageBase64 string
}

func TextPart(text string) Part { return Part{Text: text} }

func ImagePart(mime, b64 string) Part { return Part{ImageMIME: mime, ImageBase64: b64} }

func (p Part) IsImage() bool { return p.ImageBase64 != "" }

// Message carries either plain Content or Parts.
type Message struct {
	Role    string
	Content string
	Parts   []Part
}

const (
	FormatJSONObject = "json_object"
	FormatJSONSchema = "json_schema"
)

type ResponseFormat struct {
	Type   string
	Name   string
	Schema json.RawMessage
	Strict bool
}

type Request struct {
	// Operation names the call for breaker isolation and logs, e.g. "extract".
	Operation string
	Messages  []Message
	Format    ResponseFormat
	MaxTokens int
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Content    string
	Model      string
	PromptHash string
	Usage      Usage
}

// Completer is implemented by provider clients.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ErrNotConfigured is returned when no provider credentials are set.
var ErrNotConfigured = errors.New("llm provider not configured")

// Unconfigured stands in for a provider in local runs without an API key.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, Request) (Response, error) {
	return Response{}, ErrNotConfigured
}

var _ Completer = Unconfigured{}

// Package chat answers questions about a user's travel documents.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/llm"
	"traveldocs-backend/internal/reminders"
	"traveldocs-backend/internal/shared/telemetry"
)

const (
	historyTurns   = 10
	maxReplyTokens = 1024
	maxMessageLen  = 4000
)

type DocumentLister interface {
	ListByUser(ctx context.Context, userID string) ([]documents.Document, error)
}

type ReminderLister interface {
	ListByUser(ctx context.Context, userID string) ([]reminders.Reminder, error)
}

type Service struct {
	LLM       llm.Completer
	Documents DocumentLister
	Reminders ReminderLister

	prompt llm.Prompt
	now    func() time.Time
}

func NewService(completer llm.Completer, docs DocumentLister, rems ReminderLister) (*Service, error) {
	prompt, err := llm.LoadPrompt("chat")
	if err != nil {
		return nil, err
	}
	return &Service{
		LLM:       completer,
		Documents: docs,
		Reminders: rems,
		prompt:    prompt,
		now:       time.Now,
	}, nil
}

// Reply answers req.Message grounded on the owner's documents and reminders.
func (s *Service) Reply(ctx context.Context, req Request) (Message, error) {
	text := strings.TrimSpace(req.Message)
	switch {
	case req.UserID == "":
		return Message{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	case text == "":
		return Message{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	case len(text) > maxMessageLen:
		return Message{}, fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}

	docs, err := s.Documents.ListByUser(ctx, req.UserID)
	if err != nil {
		return Message{}, fmt.Errorf("load documents: %w", err)
	}
	rems, err := s.Reminders.ListByUser(ctx, req.UserID)
	if err != nil {
		return Message{}, fmt.Errorf("load reminders: %w", err)
	}

	now := s.now().UTC()
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Operation: "chat",
		Messages:  s.buildMessages(req, text, docs, rems, now),
		Format:    llm.ResponseFormat{Type: llm.FormatJSONObject},
		MaxTokens: maxReplyTokens,
	})
	if err != nil {
		telemetry.Error("chat.completion_failed", map[string]any{"user_id": req.UserID, "error": err.Error()})
		return Message{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	reply, err := parseReply(resp.Content)
	if err != nil {
		telemetry.Warn("chat.reply_invalid", map[string]any{"user_id": req.UserID, "error": err.Error()})
		return Message{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	telemetry.Info("chat.replied", map[string]any{
		"user_id":   req.UserID,
		"documents": len(docs),
		"history":   len(req.History),
	})
	return Message{Role: RoleModel, Text: reply, Timestamp: now}, nil
}

func (s *Service) buildMessages(req Request, text string, docs []documents.Document, rems []reminders.Reminder, now time.Time) []llm.Message {
	system := s.prompt.Render(map[string]string{
		"today":     now.Format(extraction.DateLayout),
		"language":  extraction.LanguageName(req.Language),
		"documents": describe(docs, rems),
	})
	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	history := req.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, h := range history {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		role := llm.RoleUser
		if h.Role == RoleModel {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: h.Text})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: text})
}

func parseReply(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("empty reply")
	}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", errors.New("reply field is empty")
	}
	return strings.TrimSpace(out.Reply), nil
}

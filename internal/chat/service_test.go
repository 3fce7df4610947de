package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/llm"
	"traveldocs-backend/internal/reminders"
)

type fakeCompleter struct {
	content string
	err     error
	last    llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.last = req
	return llm.Response{Content: f.content}, f.err
}

func newTestService(t *testing.T, completer llm.Completer) *Service {
	t.Helper()
	ctx := context.Background()
	rems := reminders.NewMemoryRepo()
	docs := documents.NewMemoryRepo(rems)
	require.NoError(t, docs.Save(ctx, documents.Document{
		ID: "doc-1", UserID: "u1", Fingerprint: "f1",
		Metadata: documents.Metadata{
			Category: extraction.CategoryTicket, Title: "LH 400", EventDate: "2025-03-01", EventTime: "14:00",
			Location: "Frankfurt", ReferenceNumber: "ABC123", KeyDetails: []string{"Seat 42A"},
		},
	}, []reminders.Reminder{{
		ID: "r-1", UserID: "u1", DocumentID: "doc-1", Source: reminders.SourceDocument,
		Title: "Leave for airport", Date: "2025-03-01", Time: "12:00", Priority: reminders.PriorityHigh,
	}}))
	require.NoError(t, rems.Create(ctx, reminders.Reminder{
		ID: "r-2", UserID: "u1", Source: reminders.SourceManual, Title: "Buy adapter", Date: "2025-02-20", Priority: reminders.PriorityLow,
	}))

	svc, err := NewService(completer, docs, rems)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestReplyGroundsOnDocuments(t *testing.T) {
	llmFake := &fakeCompleter{content: `{"reply":"Your flight LH 400 leaves on 2025-03-01 at 14:00."}`}
	svc := newTestService(t, llmFake)

	msg, err := svc.Reply(context.Background(), Request{UserID: "u1", Message: "When is my flight?", Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, RoleModel, msg.Role)
	assert.Contains(t, msg.Text, "LH 400")

	req := llmFake.last
	assert.Equal(t, "chat", req.Operation)
	assert.Equal(t, llm.FormatJSONObject, req.Format.Type)
	require.Len(t, req.Messages, 2)
	system := req.Messages[0].Content
	assert.Contains(t, system, "Today is 2025-02-01")
	assert.Contains(t, system, "German")
	assert.Contains(t, system, "LH 400 [Ticket]")
	assert.Contains(t, system, "Reference: ABC123")
	assert.Contains(t, system, "Leave for airport on 2025-03-01 12:00")
	assert.Contains(t, system, "Buy adapter")
	assert.Equal(t, "When is my flight?", req.Messages[1].Content)
}

func TestReplyKeepsLastTenTurns(t *testing.T) {
	llmFake := &fakeCompleter{content: `{"reply":"ok"}`}
	svc := newTestService(t, llmFake)

	var history []Message
	for i := 0; i < 14; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		history = append(history, Message{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}
	_, err := svc.Reply(context.Background(), Request{UserID: "u1", Message: "next", History: history})
	require.NoError(t, err)

	msgs := llmFake.last.Messages
	require.Len(t, msgs, 12)
	assert.Equal(t, "turn 4", msgs[1].Content)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "next", msgs[11].Content)
}

func TestReplyErrors(t *testing.T) {
	cases := []struct {
		name    string
		fake    *fakeCompleter
		message string
		want    error
	}{
		{name: "empty message", fake: &fakeCompleter{}, message: "  ", want: ErrInvalidInput},
		{name: "transport", fake: &fakeCompleter{err: errors.New("timeout")}, message: "hi", want: ErrUpstream},
		{name: "not configured", fake: &fakeCompleter{err: llm.ErrNotConfigured}, message: "hi", want: llm.ErrNotConfigured},
		{name: "not json", fake: &fakeCompleter{content: "Sure!"}, message: "hi", want: ErrUpstream},
		{name: "empty reply", fake: &fakeCompleter{content: `{"reply":""}`}, message: "hi", want: ErrUpstream},
		{name: "too long", fake: &fakeCompleter{}, message: strings.Repeat("a", maxMessageLen+1), want: ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, tc.fake)
			_, err := svc.Reply(context.Background(), Request{UserID: "u1", Message: tc.message})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDescribeWithoutDocuments(t *testing.T) {
	assert.Equal(t, "(no documents uploaded yet)", describe(nil, nil))
}

package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/reminders"
)

const maxContextRunes = 24000

// describe renders the owner's documents and reminders as a bounded plain-text context.
func describe(docs []documents.Document, rems []reminders.Reminder) string {
	if len(docs) == 0 && len(rems) == 0 {
		return "(no documents uploaded yet)"
	}
	byDoc := map[string][]reminders.Reminder{}
	var manual []reminders.Reminder
	for _, r := range rems {
		if r.DocumentID == "" {
			manual = append(manual, r)
			continue
		}
		byDoc[r.DocumentID] = append(byDoc[r.DocumentID], r)
	}

	var b strings.Builder
	for i, d := range docs {
		m := d.Metadata
		var block strings.Builder
		fmt.Fprintf(&block, "%d. %s [%s]\n", i+1, m.Title, m.Category)
		line(&block, "Summary", m.Summary)
		line(&block, "Event date", strings.TrimSpace(m.EventDate+" "+m.EventTime))
		line(&block, "Expiry date", m.ExpiryDate)
		line(&block, "Location", m.Location)
		line(&block, "Reference", m.ReferenceNumber)
		if len(m.KeyDetails) > 0 {
			line(&block, "Key details", strings.Join(m.KeyDetails, "; "))
		}
		if len(m.Policies) > 0 {
			line(&block, "Policies", strings.Join(m.Policies, "; "))
		}
		for _, r := range byDoc[d.ID] {
			fmt.Fprintf(&block, "   Reminder: %s\n", reminderLine(r))
		}
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(block.String()) > maxContextRunes {
			fmt.Fprintf(&b, "(%d more documents omitted)\n", len(docs)-i)
			break
		}
		b.WriteString(block.String())
	}
	if len(manual) > 0 {
		b.WriteString("Personal reminders:\n")
		for _, r := range manual {
			fmt.Fprintf(&b, " - %s\n", reminderLine(r))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func line(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "   %s: %s\n", label, value)
}

func reminderLine(r reminders.Reminder) string {
	when := strings.TrimSpace(r.Date + " " + r.Time)
	status := ""
	if r.Completed {
		status = " (done)"
	}
	return fmt.Sprintf("%s on %s, %s priority%s", r.Title, when, r.Priority, status)
}

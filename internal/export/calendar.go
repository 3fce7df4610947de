package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/reminders"
)

const (
	productID     = "-//traveldocs//calendar export//EN"
	uidDomain     = "@traveldocs"
	floatingStamp = "20060102T150405"
)

// BuildCalendar renders documents and reminders as iCalendar. Output depends only
// on the entities, so re-exporting unchanged data yields identical bytes.
func BuildCalendar(docs []documents.Document, rems []reminders.Reminder) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName("Travel documents")

	docs = append([]documents.Document(nil), docs...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	for _, d := range docs {
		m := d.Metadata
		stamp := stampOf(d.UpdatedAt, d.CreatedAt)
		if m.EventDate != "" {
			ev := cal.AddEvent("doc-" + d.ID + "-event" + uidDomain)
			ev.SetDtStampTime(stamp)
			ev.SetSummary(m.Title)
			ev.SetDescription(documentDescription(m))
			if m.Location != "" {
				ev.SetLocation(m.Location)
			}
			schedule(ev, m.EventDate, m.EventTime)
		}
		if m.ExpiryDate != "" {
			ev := cal.AddEvent("doc-" + d.ID + "-expiry" + uidDomain)
			ev.SetDtStampTime(stamp)
			ev.SetSummary("Expires: " + m.Title)
			ev.SetDescription(documentDescription(m))
			schedule(ev, m.ExpiryDate, "")
		}
	}

	rems = append([]reminders.Reminder(nil), rems...)
	sort.Slice(rems, func(i, j int) bool { return rems[i].ID < rems[j].ID })
	for _, r := range rems {
		ev := cal.AddEvent("reminder-" + r.ID + uidDomain)
		ev.SetDtStampTime(stampOf(r.UpdatedAt, r.CreatedAt))
		ev.SetSummary(r.Title)
		desc := fmt.Sprintf("Priority: %s", r.Priority)
		if r.Completed {
			desc += " (done)"
		}
		if r.Description != "" {
			desc = r.Description + "\n" + desc
		}
		ev.SetDescription(desc)
		schedule(ev, r.Date, r.Time)
	}
	return cal.Serialize()
}

// schedule sets an all-day span without a time, otherwise a one-hour floating event.
func schedule(ev *ics.VEvent, date, clock string) {
	day, err := time.Parse(extraction.DateLayout, date)
	if err != nil {
		return
	}
	if clock == "" {
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		return
	}
	start, err := time.Parse(extraction.DateLayout+" "+extraction.TimeLayout, date+" "+clock)
	if err != nil {
		return
	}
	ev.SetProperty(ics.ComponentPropertyDtStart, start.Format(floatingStamp))
	ev.SetProperty(ics.ComponentPropertyDtEnd, start.Add(time.Hour).Format(floatingStamp))
}

func documentDescription(m documents.Metadata) string {
	parts := []string{string(m.Category)}
	if m.ReferenceNumber != "" {
		parts = append(parts, "Reference: "+m.ReferenceNumber)
	}
	if m.Summary != "" {
		parts = append(parts, m.Summary)
	}
	return strings.Join(parts, "\n")
}

func stampOf(updated, created time.Time) time.Time {
	if !updated.IsZero() {
		return updated.UTC()
	}
	if !created.IsZero() {
		return created.UTC()
	}
	return time.Unix(0, 0).UTC()
}

package extraction

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const boardingLead = 2 * time.Hour

// Finalize applies deterministic post-processing to a validated result.
func Finalize(r Result, fileName string) Result {
	if r.Title == "" {
		r.Title = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	}
	if r.RiskAssessment != nil && r.RiskAssessment.Score == 0 && len(r.RiskAssessment.Factors) == 0 {
		r.RiskAssessment = nil
	}
	if r.KeyDetails == nil {
		r.KeyDetails = []string{}
	}
	if r.Policies == nil {
		r.Policies = []string{}
	}
	if r.Category == CategoryTicket {
		r.Reminders = ensureDepartureReminders(r)
	}
	r.Reminders = dedupeReminders(r.Reminders)
	sort.SliceStable(r.Reminders, func(i, j int) bool {
		a, b := r.Reminders[i], r.Reminders[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Time < b.Time
	})
	return r
}

// ensureDepartureReminders adds the exact-time and two-hours-before reminders
// for a ticket with a known departure date and time.
func ensureDepartureReminders(r Result) []ReminderDraft {
	if r.EventDate == "" || r.EventTime == "" {
		return r.Reminders
	}
	departure, err := time.Parse(DateLayout+" "+TimeLayout, r.EventDate+" "+r.EventTime)
	if err != nil {
		return r.Reminders
	}
	boarding := departure.Add(-boardingLead)

	out := r.Reminders
	if !hasReminderAt(out, departure) {
		out = append(out, ReminderDraft{
			Title:    "Departure: " + r.Title,
			Date:     departure.Format(DateLayout),
			Time:     departure.Format(TimeLayout),
			Priority: PriorityHigh,
		})
	}
	if !hasReminderAt(out, boarding) {
		out = append(out, ReminderDraft{
			Title:       "Leave for departure: " + r.Title,
			Description: "Departure at " + r.EventTime + locationSuffix(r.Location),
			Date:        boarding.Format(DateLayout),
			Time:        boarding.Format(TimeLayout),
			Priority:    PriorityHigh,
		})
	}
	return out
}

func hasReminderAt(reminders []ReminderDraft, at time.Time) bool {
	date, clock := at.Format(DateLayout), at.Format(TimeLayout)
	for _, rm := range reminders {
		if rm.Date == date && rm.Time == clock {
			return true
		}
	}
	return false
}

func locationSuffix(loc string) string {
	if loc == "" {
		return ""
	}
	return " from " + loc
}

func dedupeReminders(in []ReminderDraft) []ReminderDraft {
	seen := make(map[string]struct{}, len(in))
	out := make([]ReminderDraft, 0, len(in))
	for _, rm := range in {
		key := strings.ToLower(rm.Title) + "|" + rm.Date + "|" + rm.Time
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rm)
	}
	return out
}

package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ValidationError lists every rule a decoded result violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid extraction result: " + strings.Join(e.Problems, "; ")
}

// decodeResult parses content strictly. Unknown fields and trailing data are errors.
func decodeResult(content string) (Result, error) {
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(content)))
	dec.DisallowUnknownFields()
	var out Result
	if err := dec.Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Result{}, errors.New("decode: trailing data after object")
	}
	if err := checkRequired(stripCodeFence(content)); err != nil {
		return Result{}, err
	}
	return out, nil
}

var (
	requiredResultKeys = []string{
		"category", "categoryConfidence", "title", "summary", "eventDate", "eventTime",
		"expiryDate", "location", "referenceNumber", "keyDetails", "policies",
		"riskAssessment", "reminders",
	}
	requiredRiskKeys     = []string{"score", "factors"}
	requiredReminderKeys = []string{"title", "description", "date", "time", "priority"}
)

// checkRequired reports keys the response schema requires but the answer omitted.
// riskAssessment may be null; when present its own keys are required.
func checkRequired(content string) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &top); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	missing := missingKeys(top, requiredResultKeys, "")

	if raw, ok := top["riskAssessment"]; ok && !isNull(raw) {
		var risk map[string]json.RawMessage
		if err := json.Unmarshal(raw, &risk); err != nil {
			return fmt.Errorf("decode riskAssessment: %w", err)
		}
		missing = append(missing, missingKeys(risk, requiredRiskKeys, "riskAssessment.")...)
	}
	if raw, ok := top["reminders"]; ok && !isNull(raw) {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("decode reminders: %w", err)
		}
		for i, item := range items {
			missing = append(missing, missingKeys(item, requiredReminderKeys, fmt.Sprintf("reminders[%d].", i))...)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("decode: missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func missingKeys(obj map[string]json.RawMessage, keys []string, prefix string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			out = append(out, prefix+k)
		}
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// stripCodeFence removes a ```json fence some models wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// canonicalize trims strings and maps loose enum spellings before validation.
func (r *Result) canonicalize() {
	if c, ok := ParseCategory(string(r.Category)); ok {
		r.Category = c
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Summary = strings.TrimSpace(r.Summary)
	r.EventDate = strings.TrimSpace(r.EventDate)
	r.EventTime = strings.TrimSpace(r.EventTime)
	r.ExpiryDate = strings.TrimSpace(r.ExpiryDate)
	r.Location = strings.TrimSpace(r.Location)
	r.ReferenceNumber = strings.TrimSpace(r.ReferenceNumber)
	r.KeyDetails = compact(r.KeyDetails)
	r.Policies = compact(r.Policies)
	if r.RiskAssessment != nil {
		r.RiskAssessment.Factors = compact(r.RiskAssessment.Factors)
	}
	for i := range r.Reminders {
		rm := &r.Reminders[i]
		rm.Title = strings.TrimSpace(rm.Title)
		rm.Description = strings.TrimSpace(rm.Description)
		rm.Date = strings.TrimSpace(rm.Date)
		rm.Time = strings.TrimSpace(rm.Time)
		if p, ok := ParsePriority(string(rm.Priority)); ok {
			rm.Priority = p
		}
	}
}

// Validate checks enum membership, ranges and date/time formats.
func (r Result) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if !r.Category.Valid() {
		add("category %q is not allowed", r.Category)
	}
	if r.CategoryConfidence < 0 || r.CategoryConfidence > 1 {
		add("categoryConfidence %v outside [0,1]", r.CategoryConfidence)
	}
	if !ValidDate(r.EventDate, true) {
		add("eventDate %q is not YYYY-MM-DD", r.EventDate)
	}
	if !ValidTime(r.EventTime, true) {
		add("eventTime %q is not HH:MM", r.EventTime)
	}
	if r.EventTime != "" && r.EventDate == "" {
		add("eventTime without eventDate")
	}
	if !ValidDate(r.ExpiryDate, true) {
		add("expiryDate %q is not YYYY-MM-DD", r.ExpiryDate)
	}
	if r.RiskAssessment != nil && (r.RiskAssessment.Score < 0 || r.RiskAssessment.Score > 100) {
		add("riskAssessment.score %d outside [0,100]", r.RiskAssessment.Score)
	}
	for i, rm := range r.Reminders {
		if rm.Title == "" {
			add("reminders[%d].title is empty", i)
		}
		if !ValidDate(rm.Date, false) {
			add("reminders[%d].date %q is not YYYY-MM-DD", i, rm.Date)
		}
		if !ValidTime(rm.Time, true) {
			add("reminders[%d].time %q is not HH:MM", i, rm.Time)
		}
		if !rm.Priority.Valid() {
			add("reminders[%d].priority %q is not High, Medium or Low", i, rm.Priority)
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func ValidDate(s string, allowEmpty bool) bool {
	if s == "" {
		return allowEmpty
	}
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func ValidTime(s string, allowEmpty bool) bool {
	if s == "" {
		return allowEmpty
	}
	if len(s) != len(TimeLayout) {
		return false
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package llm

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLoadExtractionPrompt(t *testing.T) {
	p, err := LoadPrompt("extraction")
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if p.Version == "" || len(p.Rules) == 0 || strings.TrimSpace(p.Repair) == "" {
		t.Fatalf("incomplete prompt: %+v", p)
	}
	if !json.Valid([]byte(p.Schema)) {
		t.Fatalf("schema is not valid json")
	}

	text := p.Render(map[string]string{"today": "2025-02-10", "year": "2025", "language": "German", "fileName": "lh.pdf"})
	for _, want := range []string{"Today is 2025-02-10", "current year is 2025", "in German", "\"lh.pdf\"", "1. category is one of"} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered prompt missing %q", want)
		}
	}
	if strings.Contains(text, "{{") {
		t.Fatalf("unrendered placeholder in %q", text)
	}
}

func TestLoadPromptUnknown(t *testing.T) {
	if _, err := LoadPrompt("nope"); err == nil {
		t.Fatalf("expected error for unknown prompt")
	}
}

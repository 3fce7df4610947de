package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWarnWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("documents.storage_delete_failed", map[string]any{
		"document_id": "doc-1",
		"error":       errors.New("bucket unavailable"),
		"level":       "spoofed",
	})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected level warn, got %v", payload["level"])
	}
	if payload["msg"] != "documents.storage_delete_failed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["error"] != "bucket unavailable" {
		t.Fatalf("expected error string, got %v", payload["error"])
	}
	if payload["document_id"] != "doc-1" {
		t.Fatalf("unexpected document_id: %v", payload["document_id"])
	}
}

package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("SIGNED_URL_TTL", "")
	t.Setenv("QUEUE_BACKEND", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.SignedURLTTL != time.Hour {
		t.Fatalf("expected 1h signed url ttl, got %s", cfg.SignedURLTTL)
	}
	if cfg.QueueBackend != "" {
		t.Fatalf("expected no queue backend, got %q", cfg.QueueBackend)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("SIGNED_URL_TTL", "15m")
	t.Setenv("QUEUE_BACKEND", "NATS")
	t.Setenv("USAGE_LIMIT", "3")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example.com/")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.SignedURLTTL != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %s", cfg.SignedURLTTL)
	}
	if cfg.QueueBackend != "nats" {
		t.Fatalf("expected nats backend, got %q", cfg.QueueBackend)
	}
	if cfg.UsageLimit != 3 {
		t.Fatalf("expected usage limit 3, got %d", cfg.UsageLimit)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3 store, got %q", cfg.ObjectStoreType)
	}
	if cfg.PublicBaseURL != "https://api.example.com" {
		t.Fatalf("expected trimmed base url, got %q", cfg.PublicBaseURL)
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("USAGE_LIMIT", "many")
	t.Setenv("SIGNED_URL_TTL", "-5m")

	cfg := Load()
	if cfg.UsageLimit != 25 {
		t.Fatalf("expected default usage limit, got %d", cfg.UsageLimit)
	}
	if cfg.SignedURLTTL != time.Hour {
		t.Fatalf("expected default ttl, got %s", cfg.SignedURLTTL)
	}
}

func TestProductionRequiresFileSigningSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("FILE_SIGNING_SECRET", "")

	cfg := Load()
	if cfg.FileSigningSecret != "" {
		t.Fatalf("expected no fallback secret in production, got %q", cfg.FileSigningSecret)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingFileSigningSecret) {
		t.Fatalf("expected ErrMissingFileSigningSecret, got %v", err)
	}

	t.Setenv("FILE_SIGNING_SECRET", "s3cret")
	cfg = Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestDevKeepsFileSigningFallback(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("FILE_SIGNING_SECRET", "")

	cfg := Load()
	if cfg.FileSigningSecret == "" {
		t.Fatal("expected dev fallback secret")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid dev config, got %v", err)
	}
}

func TestLoadReadsWorkerSettings(t *testing.T) {
	t.Setenv("SQS_QUEUE_URL", "https://sqs.eu-west-1.amazonaws.com/1/cleanup")
	t.Setenv("SQS_VISIBILITY_TIMEOUT", "90s")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("WORKER_SHUTDOWN_TIMEOUT", "")

	cfg := Load()
	if cfg.SQSQueueURL != "https://sqs.eu-west-1.amazonaws.com/1/cleanup" {
		t.Fatalf("unexpected queue url %q", cfg.SQSQueueURL)
	}
	if cfg.SQSVisibilityTimeout != 90*time.Second {
		t.Fatalf("expected 90s visibility, got %s", cfg.SQSVisibilityTimeout)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerShutdownTimeout != 30*time.Second {
		t.Fatalf("expected default 30s shutdown, got %s", cfg.WorkerShutdownTimeout)
	}
}

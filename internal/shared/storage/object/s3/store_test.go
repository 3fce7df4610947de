package s3

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "docs", key: "user/file.pdf", want: "docs/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/docs/", key: "/user/file.pdf", want: "docs/user/file.pdf"},
		{name: "empty key", prefix: "docs", key: "", want: "docs"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestSignedURLPresignsGet(t *testing.T) {
	client := s3.NewFromConfig(aws.Config{
		Region: "eu-central-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDTEST", SecretAccessKey: "secret"}, nil
		}),
	})
	store, err := NewWithClient(client, "travel-docs", "uploads", "")
	if err != nil {
		t.Fatalf("NewWithClient: %v", err)
	}

	raw, err := store.SignedURL(context.Background(), "owner/abc_ticket.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(u.Host+u.Path, "travel-docs") || !strings.HasSuffix(u.Path, "/uploads/owner/abc_ticket.pdf") {
		t.Fatalf("unexpected presigned url %s", raw)
	}
	if got := u.Query().Get("X-Amz-Expires"); got != "900" {
		t.Fatalf("expected 900s expiry, got %q", got)
	}
}

func TestNewWithClientRequiresBucket(t *testing.T) {
	if _, err := NewWithClient(nil, " ", "", ""); err == nil {
		t.Fatalf("expected bucket error")
	}
}

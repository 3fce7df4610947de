package util

import (
	"bytes"
	"errors"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestFingerprintStableAndSensitive(t *testing.T) {
	data := []byte("%PDF-1.7 boarding pass LH 401")
	first, err := Fingerprint(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	second := FingerprintBytes(data)
	if first != second {
		t.Fatalf("stream and byte digests differ: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0x01
	if FingerprintBytes(flipped) == first {
		t.Fatalf("single byte change must change the digest")
	}
}

func TestFingerprintEmptyInput(t *testing.T) {
	got := FingerprintBytes(nil)
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Fatalf("unexpected empty digest %s", got)
	}
}

func TestFingerprintReadFailure(t *testing.T) {
	if _, err := Fingerprint(failingReader{}); err == nil {
		t.Fatalf("expected read error")
	}
}

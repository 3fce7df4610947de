package account

import (
	"context"
	"errors"
	"testing"
)

type countingClaimer struct {
	calls       int
	guestUserID string
	err         error
}

func (c *countingClaimer) ClaimGuest(_ context.Context, guestUserID, _ string) (int, error) {
	c.calls++
	c.guestUserID = guestUserID
	return 1, c.err
}

type documentClaimerFunc func(ctx context.Context, guestUserID, authedUserID, requestID string) (int, error)

func (f documentClaimerFunc) ClaimGuest(ctx context.Context, guestUserID, authedUserID, requestID string) (int, error) {
	return f(ctx, guestUserID, authedUserID, requestID)
}

func TestServiceClaimGuestValidatesCaller(t *testing.T) {
	const guestID = "11111111-1111-1111-1111-111111111111"
	cases := []struct {
		name string
		req  ClaimRequest
		want error
	}{
		{"guest caller", ClaimRequest{UserID: "guest:" + guestID, Guest: true, GuestID: guestID}, ErrLoginRequired},
		{"guest subject without flag", ClaimRequest{UserID: "guest:" + guestID, GuestID: guestID}, ErrLoginRequired},
		{"anonymous", ClaimRequest{GuestID: guestID}, ErrLoginRequired},
		{"missing guest id", ClaimRequest{UserID: "google:1", GuestID: "  "}, ErrMissingGuestID},
		{"malformed guest id", ClaimRequest{UserID: "google:1", GuestID: "guest1"}, ErrInvalidGuestID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			docs := documentClaimerFunc(func(context.Context, string, string, string) (int, error) {
				t.Fatal("documents must not be touched")
				return 0, nil
			})
			rems := &countingClaimer{}
			_, err := NewService(docs, rems, nil).ClaimGuest(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if rems.calls != 0 {
				t.Fatalf("reminders claimed on a rejected request")
			}
		})
	}
}

func TestServiceClaimGuestScopesGuestSubject(t *testing.T) {
	var gotGuest, gotUser, gotRequest string
	docs := documentClaimerFunc(func(_ context.Context, guestUserID, authedUserID, requestID string) (int, error) {
		gotGuest, gotUser, gotRequest = guestUserID, authedUserID, requestID
		return 2, nil
	})
	rems := &countingClaimer{}

	result, err := NewService(docs, rems, nil).ClaimGuest(context.Background(), ClaimRequest{
		UserID:    " google:1 ",
		GuestID:   " 11111111-1111-1111-1111-111111111111 ",
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if gotGuest != "guest:11111111-1111-1111-1111-111111111111" || gotUser != "google:1" || gotRequest != "req-1" {
		t.Fatalf("unexpected claim arguments %q %q %q", gotGuest, gotUser, gotRequest)
	}
	if rems.guestUserID != gotGuest {
		t.Fatalf("reminders claimed for %q", rems.guestUserID)
	}
	if result.MigratedDocuments != 2 || result.MigratedReminders != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestServiceClaimGuestWrapsStepFailure(t *testing.T) {
	docs := documentClaimerFunc(func(context.Context, string, string, string) (int, error) { return 0, nil })
	boom := errors.New("connection reset")
	rems := &countingClaimer{err: boom}

	_, err := NewService(docs, rems, nil).ClaimGuest(context.Background(), ClaimRequest{
		UserID:  "google:1",
		GuestID: "11111111-1111-1111-1111-111111111111",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
}

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

func testIdentity() user.Identity {
	return user.Identity{
		ID:       "3f0c8f2e-7c1b-4a43-9d55-6f4f0b8f1d11",
		Username: "alice",
		Email:    "a@x.com",
		Role:     user.RoleUser,
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	tok, err := m.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	if got != testIdentity() {
		t.Fatalf("got %+v, want %+v", got, testIdentity())
	}
}

func TestVerifyFailsAfterTTL(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager("test-secret", time.Hour).WithClock(func() time.Time { return issuedAt })

	tok, err := m.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	justBefore := m.WithClock(func() time.Time { return issuedAt.Add(59 * time.Minute) })
	if _, err := justBefore.Verify(tok); err != nil {
		t.Fatalf("expected token to be valid before ttl, got %v", err)
	}

	after := m.WithClock(func() time.Time { return issuedAt.Add(61 * time.Minute) })
	_, err = after.Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after ttl, got %v", err)
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expiry cause, got %v", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	other := NewManager("other-secret", time.Hour)

	foreign, _ := other.Issue(testIdentity())
	good, _ := m.Issue(testIdentity())

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "x", Role: "admin"})
	none, _ := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong_secret", foreign},
		{"tampered_payload", tampered},
		{"alg_none", none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	id := testIdentity()
	id.Role = "superuser"

	tok, err := m.Issue(id)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewManagerDefaultsToOneHour(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager("s", 0).WithClock(func() time.Time { return now })

	tok, err := m.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, err := m.Verify(tok); err != nil {
		t.Fatalf("token should still be valid after 59m: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after 61m, got %v", err)
	}
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := NotFound("Post not found")

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound to match sentinel")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("NotFound must not match Forbidden")
	}

	wrapped := fmt.Errorf("delete post: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected wrapped error to match sentinel")
	}

	e, ok := As(wrapped)
	if !ok {
		t.Fatalf("expected As to find typed error")
	}
	if e.Status != http.StatusNotFound || e.Message != "Post not found" {
		t.Fatalf("unexpected error %+v", e)
	}
}

func TestStatusPerKind(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Unauthenticated("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{Conflict("x"), http.StatusConflict},
		{InvalidCredentials("x"), http.StatusUnauthorized},
		{InvalidInput("x"), http.StatusBadRequest},
		{RateLimited("x"), http.StatusTooManyRequests},
		{New("SOMETHING_ELSE", "x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if tt.err.Status != tt.want {
			t.Fatalf("kind %s: got status %d, want %d", tt.err.Kind, tt.err.Status, tt.want)
		}
	}
}

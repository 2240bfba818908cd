package graph

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/geocoder89/fraghub/internal/apperr"
)

const codeInternal = "INTERNAL_SERVER_ERROR"

// Error is what a resolver returns to the executor. Its extensions carry the
// machine readable code and the HTTP-like status of the failure.
type Error struct {
	Message string
	Code    string
	Status  int
	// RetryAfter is in whole seconds, zero when not rate limited.
	RetryAfter int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{
		"code":   e.Code,
		"status": e.Status,
	}
	if e.RetryAfter > 0 {
		ext["retryAfter"] = e.RetryAfter
	}
	return ext
}

// toGraphError keeps typed domain failures as they are and hides anything
// else behind a generic message after logging it.
func toGraphError(ctx context.Context, log *slog.Logger, field string, err error) *Error {
	if e, ok := apperr.As(err); ok {
		return &Error{
			Message:    e.Message,
			Code:       string(e.Kind),
			Status:     e.Status,
			RetryAfter: int(math.Ceil(e.RetryAfter.Seconds())),
		}
	}

	log.ErrorContext(ctx, "resolver_failed", "field", field, "err", err)
	return &Error{Message: "Internal server error", Code: codeInternal, Status: http.StatusInternalServerError}
}

// outcome labels resolver metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := apperr.As(err); ok {
		return strings.ToLower(string(e.Kind))
	}
	return "error"
}

// Package apperr holds the typed failures that domain operations return.
// Each error carries a kind for errors.Is matching and an HTTP-like status
// that the transport renders to clients.
package apperr

import (
	"errors"
	"net/http"
	"time"
)

type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInvalidInput       Kind = "BAD_USER_INPUT"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindUnavailable        Kind = "SERVICE_UNAVAILABLE"
)

var statusByKind = map[Kind]int{
	KindUnauthenticated:    http.StatusUnauthorized,
	KindForbidden:          http.StatusForbidden,
	KindNotFound:           http.StatusNotFound,
	KindConflict:           http.StatusConflict,
	KindInvalidCredentials: http.StatusUnauthorized,
	KindInvalidInput:       http.StatusBadRequest,
	KindRateLimited:        http.StatusTooManyRequests,
	KindUnavailable:        http.StatusServiceUnavailable,
}

// Sentinels for errors.Is. Two errors match when their kinds match.
var (
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized, Message: "unauthenticated"}
	ErrForbidden          = &Error{Kind: KindForbidden, Status: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound           = &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: "not found"}
	ErrConflict           = &Error{Kind: KindConflict, Status: http.StatusConflict, Message: "conflict"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Status: http.StatusBadRequest, Message: "invalid input"}
	ErrRateLimited        = &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: "rate limited"}
	ErrUnavailable        = &Error{Kind: KindUnavailable, Status: http.StatusServiceUnavailable, Message: "service unavailable"}
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	// RetryAfter is set on rate limited errors.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

func Unauthenticated(message string) *Error    { return New(KindUnauthenticated, message) }
func Forbidden(message string) *Error          { return New(KindForbidden, message) }
func NotFound(message string) *Error           { return New(KindNotFound, message) }
func Conflict(message string) *Error           { return New(KindConflict, message) }
func InvalidCredentials(message string) *Error { return New(KindInvalidCredentials, message) }
func InvalidInput(message string) *Error       { return New(KindInvalidInput, message) }
func RateLimited(message string) *Error        { return New(KindRateLimited, message) }
func Unavailable(message string) *Error        { return New(KindUnavailable, message) }

// RateLimitedFor is a rate limited error that tells the caller when to retry.
func RateLimitedFor(message string, retryAfter time.Duration) *Error {
	e := New(KindRateLimited, message)
	e.RetryAfter = retryAfter
	return e
}

// As extracts the typed error from a chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

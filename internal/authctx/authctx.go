// Package authctx resolves the Authorization header of an inbound request
// into a Session and carries it through context.Context.
package authctx

import (
	"context"
	"strings"

	"github.com/geocoder89/fraghub/internal/domain/user"
)

// Session is either Anonymous or Authenticated.
type Session interface {
	isSession()
}

type Anonymous struct{}

type Authenticated struct {
	Token    string
	Identity user.Identity
}

func (Anonymous) isSession()     {}
func (Authenticated) isSession() {}

// IdentityOf returns the identity when the session is authenticated.
func IdentityOf(s Session) (user.Identity, bool) {
	a, ok := s.(Authenticated)
	if !ok {
		return user.Identity{}, false
	}
	return a.Identity, true
}

type TokenVerifier interface {
	Verify(token string) (user.Identity, error)
}

type Builder struct {
	verifier TokenVerifier
}

func NewBuilder(verifier TokenVerifier) *Builder {
	return &Builder{verifier: verifier}
}

// FromHeader never fails. A missing, empty or invalid token yields Anonymous;
// operations that need an identity reject the request later.
func (b *Builder) FromHeader(authHeader string) Session {
	raw := ExtractToken(authHeader)
	if raw == "" {
		return Anonymous{}
	}

	id, err := b.verifier.Verify(raw)
	if err != nil {
		return Anonymous{}
	}

	return Authenticated{Token: raw, Identity: id}
}

// ExtractToken strips an optional "Bearer " prefix.
func ExtractToken(authHeader string) string {
	v := strings.TrimSpace(authHeader)
	if strings.HasPrefix(v, "Bearer ") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
	}
	return v
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From returns the session on ctx, Anonymous when none was attached.
func From(ctx context.Context) Session {
	s, ok := ctx.Value(ctxKey{}).(Session)
	if !ok || s == nil {
		return Anonymous{}
	}
	return s
}

package auth

import (
	"errors"
	"time"

	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long an issued session token stays valid.
const DefaultTTL = time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims is a snapshot of the identity at issuance time.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	UserID   string `json:"id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 session tokens. There is no refresh and
// no revocation: a token stays valid for its full TTL even if the account
// changes afterwards.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the manager that reads time from now.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *Manager) Issue(id user.Identity) (string, error) {
	now := m.now().UTC()

	claims := Claims{
		Username: id.Username,
		Email:    id.Email,
		UserID:   id.ID,
		Role:     string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Subject:   id.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) ParseAndValidate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HMAC
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify returns the identity carried by a valid, unexpired token.
func (m *Manager) Verify(tokenStr string) (user.Identity, error) {
	claims, err := m.ParseAndValidate(tokenStr)
	if err != nil {
		return user.Identity{}, err
	}

	role := user.Role(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return user.Identity{}, ErrInvalidToken
	}

	return user.Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     role,
	}, nil
}

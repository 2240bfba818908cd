package db

import (
	"context"
	"errors"

	"github.com/geocoder89/fraghub/internal/config"
	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/geocoder89/fraghub/internal/security"
	"github.com/google/uuid"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. It is a no-op
// when no admin credentials are configured or the email is already taken.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher security.Hasher, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := user.NormalizeEmail(cfg.AdminEmail)

	_, err := store.GetByEmail(ctx, email)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = store.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Username:     user.NormalizeUsername(cfg.AdminUsername),
		Email:        email,
		Role:         user.RoleAdmin,
		PasswordHash: hash,
	})

	if errors.Is(err, user.ErrEmailAlreadyUsed) {
		return nil
	}
	return err
}

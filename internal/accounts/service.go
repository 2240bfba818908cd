// Package accounts registers users, logs them in and manages their records.
package accounts

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/fraghub/internal/access"
	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/geocoder89/fraghub/internal/security"
	"github.com/geocoder89/fraghub/internal/validation"
	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByLogin(ctx context.Context, identifier string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id string, ch user.Changes) (user.User, error)
	Delete(ctx context.Context, id string) (user.User, error)
}

type TokenIssuer interface {
	Issue(id user.Identity) (string, error)
}

type Service struct {
	users  UserStore
	hasher security.Hasher
	tokens TokenIssuer
	log    *slog.Logger
}

func NewService(users UserStore, hasher security.Hasher, tokens TokenIssuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, log: log}
}

// LoginResult carries the issued token and the identity it encodes.
type LoginResult struct {
	Token string
	User  user.Identity
}

func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (user.Identity, error) {
	if err := validation.Struct(req); err != nil {
		return user.Identity{}, err
	}

	email := user.NormalizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return user.Identity{}, apperr.Conflict("User already registered on that email")
	case !errors.Is(err, user.ErrNotFound):
		return user.Identity{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return user.Identity{}, err
	}

	created, err := s.users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Username:     user.NormalizeUsername(req.Username),
		Email:        email,
		Role:         user.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			return user.Identity{}, apperr.Conflict("User already registered on that email")
		}
		return user.Identity{}, err
	}

	s.log.InfoContext(ctx, "user_registered", "user_id", created.ID)
	return created.Identity(), nil
}

// Login accepts either the email or the username as identifier. The two
// failure messages differ, which tells a caller whether the account exists.
func (s *Service) Login(ctx context.Context, req user.LoginRequest) (LoginResult, error) {
	if err := validation.Struct(req); err != nil {
		return LoginResult{}, err
	}

	found, err := s.users.GetByLogin(ctx, user.NormalizeUsername(req.Username))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return LoginResult{}, apperr.InvalidCredentials("Invalid username/email")
		}
		return LoginResult{}, err
	}

	if !s.hasher.Verify(req.Password, found.PasswordHash) {
		s.log.WarnContext(ctx, "login_failed", "user_id", found.ID)
		return LoginResult{}, apperr.InvalidCredentials("Invalid password")
	}

	id := found.Identity()
	token, err := s.tokens.Issue(id)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: token, User: id}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]user.Identity, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]user.Identity, 0, len(users))
	for _, u := range users {
		out = append(out, u.Identity())
	}
	return out, nil
}

// GetUser returns nil without error when no such user exists.
func (s *Service) GetUser(ctx context.Context, id string) (*user.Identity, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ident := u.Identity()
	return &ident, nil
}

// CheckToken echoes the identity of an authenticated session.
func (s *Service) CheckToken(session authctx.Session) (user.Identity, error) {
	return access.Decide(session, access.CheckToken, nil)
}

// UpdateUser applies a partial update to the caller's record, or to the
// record named by id when the caller is an admin. Only admins may change roles.
func (s *Service) UpdateUser(ctx context.Context, session authctx.Session, req user.UpdateRequest, id string) (user.Identity, error) {
	caller, err := access.Decide(session, access.UpdateUser, nil)
	if err != nil {
		return user.Identity{}, err
	}

	if err := validation.Struct(req); err != nil {
		return user.Identity{}, err
	}

	targetID := access.TargetUserID(caller, id)
	if _, err := s.decideOnUser(ctx, session, access.UpdateUser, targetID); err != nil {
		return user.Identity{}, err
	}

	if req.Role != nil {
		if _, err := access.RequireAdmin(session, access.ChangeRole); err != nil {
			return user.Identity{}, err
		}
	}

	changes, err := s.changes(req)
	if err != nil {
		return user.Identity{}, err
	}

	updated, err := s.users.Update(ctx, targetID, changes)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return user.Identity{}, apperr.NotFound("User not found")
		case errors.Is(err, user.ErrEmailAlreadyUsed):
			return user.Identity{}, apperr.Conflict("User already registered on that email")
		}
		return user.Identity{}, err
	}

	s.log.InfoContext(ctx, "user_updated", "user_id", targetID, "actor_id", caller.ID)
	return updated.Identity(), nil
}

// DeleteUser removes the caller's record, or another one for admins. Posts
// and comments of the removed user stay in place.
func (s *Service) DeleteUser(ctx context.Context, session authctx.Session, id string) (user.Identity, error) {
	caller, err := access.Decide(session, access.DeleteUser, nil)
	if err != nil {
		return user.Identity{}, err
	}

	targetID := access.TargetUserID(caller, id)
	if _, err := s.decideOnUser(ctx, session, access.DeleteUser, targetID); err != nil {
		return user.Identity{}, err
	}

	deleted, err := s.users.Delete(ctx, targetID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Identity{}, apperr.NotFound("User not found")
		}
		return user.Identity{}, err
	}

	s.log.InfoContext(ctx, "user_deleted", "user_id", targetID, "actor_id", caller.ID)
	return deleted.Identity(), nil
}

func (s *Service) decideOnUser(ctx context.Context, session authctx.Session, op access.Operation, targetID string) (user.Identity, error) {
	target := access.Owned(targetID)

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return user.Identity{}, err
		}
		target = access.Missing()
	}

	return access.Decide(session, op, target)
}

func (s *Service) changes(req user.UpdateRequest) (user.Changes, error) {
	var ch user.Changes

	if req.Username != nil {
		v := user.NormalizeUsername(*req.Username)
		ch.Username = &v
	}
	if req.Email != nil {
		v := user.NormalizeEmail(*req.Email)
		ch.Email = &v
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return user.Changes{}, err
		}
		ch.PasswordHash = &hash
	}
	if req.Role != nil {
		v := *req.Role
		ch.Role = &v
	}

	return ch, nil
}

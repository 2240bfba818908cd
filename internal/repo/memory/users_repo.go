package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
	order []string
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Email == u.Email {
			return user.User{}, user.ErrEmailAlreadyUsed
		}
	}

	r.items[u.ID] = u
	r.order = append(r.order, u.ID)
	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.Email == email })
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.Username == username })
}

// GetByLogin matches either the email or the username.
func (r *UsersRepo) GetByLogin(_ context.Context, identifier string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.Email == identifier || u.Username == identifier })
}

func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.items))
	for _, id := range r.order {
		if u, ok := r.items[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UsersRepo) Update(_ context.Context, id string, ch user.Changes) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if ch.Email != nil {
		for otherID, existing := range r.items {
			if otherID != id && existing.Email == *ch.Email {
				return user.User{}, user.ErrEmailAlreadyUsed
			}
		}
		u.Email = *ch.Email
	}
	if ch.Username != nil {
		u.Username = *ch.Username
	}
	if ch.PasswordHash != nil {
		u.PasswordHash = *ch.PasswordHash
	}
	if ch.Role != nil {
		u.Role = *ch.Role
	}

	r.items[id] = u
	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	delete(r.items, id)
	return u, nil
}

func (r *UsersRepo) Ping(context.Context) error {
	return nil
}

func (r *UsersRepo) find(match func(user.User) bool) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if u := r.items[id]; match(u) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

// author populates an author reference; deleted accounts keep only their id.
func (r *UsersRepo) author(id string) post.Author {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return post.Author{ID: id}
	}
	return post.Author{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

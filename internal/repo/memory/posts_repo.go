package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/geocoder89/fraghub/internal/domain/post"
)

type postRow struct {
	post.Post
	seq int
}

type PostsRepo struct {
	mu    sync.RWMutex
	items map[string]postRow
	seq   int
	users *UsersRepo
}

func NewPostsRepo(users *UsersRepo) *PostsRepo {
	return &PostsRepo{
		items: make(map[string]postRow),
		users: users,
	}
}

func (r *PostsRepo) Create(_ context.Context, p post.Post) (post.Post, error) {
	r.mu.Lock()
	r.seq++
	p.Comments = nil
	r.items[p.ID] = postRow{Post: p, seq: r.seq}
	r.mu.Unlock()

	return r.populate(p), nil
}

func (r *PostsRepo) GetByID(_ context.Context, id string) (post.Post, error) {
	r.mu.RLock()
	row, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	return r.populate(row.Post), nil
}

func (r *PostsRepo) List(_ context.Context, q post.Query) ([]post.Post, error) {
	matched := r.match(q)

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.Order == post.SortDesc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		// ties keep insertion order in the requested direction
		if q.Order == post.SortDesc {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	if q.Offset >= len(matched) {
		return []post.Post{}, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}

	out := make([]post.Post, 0, end-q.Offset)
	for _, row := range matched[q.Offset:end] {
		out = append(out, r.populate(row.Post))
	}
	return out, nil
}

func (r *PostsRepo) Count(_ context.Context, q post.Query) (int, error) {
	return len(r.match(q)), nil
}

func (r *PostsRepo) Delete(_ context.Context, id string) (post.Post, error) {
	r.mu.Lock()
	row, ok := r.items[id]
	if ok {
		delete(r.items, id)
	}
	r.mu.Unlock()

	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	return r.populate(row.Post), nil
}

func (r *PostsRepo) match(q post.Query) []postRow {
	if q.MatchNone {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []postRow
	for _, row := range r.items {
		if q.Title != nil && !strings.Contains(strings.ToLower(row.Title), strings.ToLower(*q.Title)) {
			continue
		}
		if q.AuthorID != nil && row.Author.ID != *q.AuthorID {
			continue
		}
		if q.From != nil && row.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && row.CreatedAt.After(*q.To) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (r *PostsRepo) populate(p post.Post) post.Post {
	if r.users != nil {
		p.Author = r.users.author(p.Author.ID)
	}
	return p
}

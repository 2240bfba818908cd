package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/fraghub/internal/domain/post"
)

type commentRow struct {
	post.Comment
	seq int
}

type CommentsRepo struct {
	mu    sync.RWMutex
	items map[string]commentRow
	seq   int
	users *UsersRepo
}

func NewCommentsRepo(users *UsersRepo) *CommentsRepo {
	return &CommentsRepo{
		items: make(map[string]commentRow),
		users: users,
	}
}

func (r *CommentsRepo) Create(_ context.Context, c post.Comment) (post.Comment, error) {
	r.mu.Lock()
	r.seq++
	r.items[c.ID] = commentRow{Comment: c, seq: r.seq}
	r.mu.Unlock()

	return r.populate(c), nil
}

func (r *CommentsRepo) GetByID(_ context.Context, id string) (post.Comment, error) {
	r.mu.RLock()
	row, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return post.Comment{}, post.ErrCommentNotFound
	}
	return r.populate(row.Comment), nil
}

// ListByPost returns the comments of a post, oldest first.
func (r *CommentsRepo) ListByPost(_ context.Context, postID string) ([]post.Comment, error) {
	r.mu.RLock()
	var rows []commentRow
	for _, row := range r.items {
		if row.PostID == postID {
			rows = append(rows, row)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]post.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.populate(row.Comment))
	}
	return out, nil
}

func (r *CommentsRepo) DeleteByPost(_ context.Context, postID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.items {
		if row.PostID == postID {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *CommentsRepo) Delete(_ context.Context, id string) (post.Comment, error) {
	r.mu.Lock()
	row, ok := r.items[id]
	if ok {
		delete(r.items, id)
	}
	r.mu.Unlock()

	if !ok {
		return post.Comment{}, post.ErrCommentNotFound
	}
	return r.populate(row.Comment), nil
}

func (r *CommentsRepo) populate(c post.Comment) post.Comment {
	if r.users != nil {
		c.Author = r.users.author(c.Author.ID)
	}
	return c
}

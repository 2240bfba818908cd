package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/geocoder89/fraghub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const commentSelect = `SELECT c.id, c.post_id, c.author_id, COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.role, ''),
	c.content, c.created_at
	FROM comments c
	LEFT JOIN users u ON u.id = c.author_id`

type CommentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{pool: pool, prom: prom}
}

// Create does not check that the post exists; post_id has no foreign key.
func (r *CommentsRepo) Create(ctx context.Context, c post.Comment) (post.Comment, error) {
	var out post.Comment

	err := r.prom.ObserveDB("comments.create", func() error {
		row := r.pool.QueryRow(ctx,
			`WITH c AS (
				INSERT INTO comments (id, post_id, author_id, content, created_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, post_id, author_id, content, created_at
			)
			SELECT c.id, c.post_id, c.author_id, COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.role, ''),
				c.content, c.created_at
			FROM c
			LEFT JOIN users u ON u.id = c.author_id`,
			c.ID, c.PostID, c.Author.ID, c.Content, c.CreatedAt,
		)
		var err error
		out, err = scanComment(row)
		return err
	})

	if err != nil {
		return post.Comment{}, err
	}
	return out, nil
}

func (r *CommentsRepo) GetByID(ctx context.Context, id string) (post.Comment, error) {
	var c post.Comment

	err := r.prom.ObserveDB("comments.get_by_id", func() error {
		var err error
		c, err = scanComment(r.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Comment{}, post.ErrCommentNotFound
		}
		return post.Comment{}, err
	}
	return c, nil
}

// ListByPost returns the comments of a post, oldest first.
func (r *CommentsRepo) ListByPost(ctx context.Context, postID string) ([]post.Comment, error) {
	out := make([]post.Comment, 0)

	err := r.prom.ObserveDB("comments.list_by_post", func() error {
		rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.post_id = $1 ORDER BY c.created_at ASC, c.id ASC`, postID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanComment(rows)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CommentsRepo) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	var n int64

	err := r.prom.ObserveDB("comments.delete_by_post", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, postID)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

func (r *CommentsRepo) Delete(ctx context.Context, id string) (post.Comment, error) {
	var c post.Comment

	err := r.prom.ObserveDB("comments.delete", func() error {
		row := r.pool.QueryRow(ctx,
			`WITH c AS (
				DELETE FROM comments WHERE id = $1
				RETURNING id, post_id, author_id, content, created_at
			)
			SELECT c.id, c.post_id, c.author_id, COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.role, ''),
				c.content, c.created_at
			FROM c
			LEFT JOIN users u ON u.id = c.author_id`,
			id,
		)
		var err error
		c, err = scanComment(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Comment{}, post.ErrCommentNotFound
		}
		return post.Comment{}, err
	}
	return c, nil
}

func scanComment(row pgx.Row) (post.Comment, error) {
	var c post.Comment
	var role string

	err := row.Scan(&c.ID, &c.PostID, &c.Author.ID, &c.Author.Username, &c.Author.Email, &role, &c.Content, &c.CreatedAt)
	if err != nil {
		return post.Comment{}, err
	}
	c.Author.Role = userRole(role)
	return c, nil
}

func userRole(s string) user.Role {
	return user.Role(s)
}

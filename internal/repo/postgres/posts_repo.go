package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// author columns come from a LEFT JOIN: a deleted account leaves NULLs behind.
const postSelect = `SELECT p.id, p.author_id, COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.role, ''),
	p.title, p.content, p.created_at
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func (r *PostsRepo) Create(ctx context.Context, p post.Post) (post.Post, error) {
	var out post.Post

	err := r.prom.ObserveDB("posts.create", func() error {
		row := r.pool.QueryRow(ctx,
			`WITH p AS (
				INSERT INTO posts (id, author_id, title, content, created_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, author_id, title, content, created_at
			)
			SELECT p.id, p.author_id, COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.role, ''),
				p.title, p.content, p.created_at
			FROM p
			LEFT JOIN users u ON u.id = p.author_id`,
			p.ID, p.Author.ID, p.Title, p.Content, p.CreatedAt,
		)
		var err error
		out, err = scanPost(row)
		return err
	})

	if err != nil {
		return post.Post{}, err
	}
	return out, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	var p post.Post

	err := r.prom.ObserveDB("posts.get_by_id", func() error {
		var err error
		p, err = scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

func (r *PostsRepo) List(ctx context.Context, q post.Query) ([]post.Post, error) {
	if q.MatchNone {
		return []post.Post{}, nil
	}

	where, args := buildPostWhere(q)

	direction := "ASC"
	if q.Order == post.SortDesc {
		direction = "DESC"
	}

	argsPosition := len(args) + 1
	query := postSelect + where +
		fmt.Sprintf(" ORDER BY p.created_at %s, p.id %s LIMIT $%d OFFSET $%d", direction, direction, argsPosition, argsPosition+1)
	args = append(args, q.Limit, q.Offset)

	output := make([]post.Post, 0, q.Limit)

	err := r.prom.ObserveDB("posts.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return err
			}
			output = append(output, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return output, nil
}

// Count uses the same predicate as List without paging.
func (r *PostsRepo) Count(ctx context.Context, q post.Query) (int, error) {
	if q.MatchNone {
		return 0, nil
	}

	where, args := buildPostWhere(q)

	var total int
	err := r.prom.ObserveDB("posts.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PostsRepo) Delete(ctx context.Context, id string) (post.Post, error) {
	var p post.Post

	err := r.prom.ObserveDB("posts.delete", func() error {
		row := r.pool.QueryRow(ctx,
			`WITH p AS (
				DELETE FROM posts WHERE id = $1
				RETURNING id, author_id, title, content, created_at
			)
			SELECT p.id, p.author_id, COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.role, ''),
				p.title, p.content, p.created_at
			FROM p
			LEFT JOIN users u ON u.id = p.author_id`,
			id,
		)
		var err error
		p, err = scanPost(row)
		return err
	})

	if err != nil {
		// if no rows were deleted the post is already gone
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

func buildPostWhere(q post.Query) (string, []interface{}) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if q.Title != nil {
		conds = append(conds, fmt.Sprintf("strpos(lower(p.title), lower($%d)) > 0", argsPosition))
		args = append(args, *q.Title)
		argsPosition++
	}

	if q.AuthorID != nil {
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", argsPosition))
		args = append(args, *q.AuthorID)
		argsPosition++
	}

	if q.From != nil {
		conds = append(conds, fmt.Sprintf("p.created_at >= $%d", argsPosition))
		args = append(args, *q.From)
		argsPosition++
	}

	if q.To != nil {
		conds = append(conds, fmt.Sprintf("p.created_at <= $%d", argsPosition))
		args = append(args, *q.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post
	var role string

	err := row.Scan(&p.ID, &p.Author.ID, &p.Author.Username, &p.Author.Email, &role, &p.Title, &p.Content, &p.CreatedAt)
	if err != nil {
		return post.Post{}, err
	}
	p.Author.Role = userRole(role)
	return p, nil
}

// Package forum lists, creates and deletes posts and their comments.
package forum

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/fraghub/internal/access"
	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/geocoder89/fraghub/internal/validation"
	"golang.org/x/sync/errgroup"
)

type PostStore interface {
	Create(ctx context.Context, p post.Post) (post.Post, error)
	GetByID(ctx context.Context, id string) (post.Post, error)
	List(ctx context.Context, q post.Query) ([]post.Post, error)
	Count(ctx context.Context, q post.Query) (int, error)
	Delete(ctx context.Context, id string) (post.Post, error)
}

type CommentStore interface {
	Create(ctx context.Context, c post.Comment) (post.Comment, error)
	GetByID(ctx context.Context, id string) (post.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]post.Comment, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
	Delete(ctx context.Context, id string) (post.Comment, error)
}

type AuthorLookup interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

// commentLoaders caps concurrent comment queries per listed page.
const commentLoaders = 4

type Service struct {
	posts    PostStore
	comments CommentStore
	users    AuthorLookup
	log      *slog.Logger
	now      func() time.Time
}

func NewService(posts PostStore, comments CommentStore, users AuthorLookup, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		posts:    posts,
		comments: comments,
		users:    users,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the creation timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// ListPosts returns one page of the filtered posts, each with its comments,
// and the page count of the whole filtered set.
func (s *Service) ListPosts(ctx context.Context, f post.Filter) (post.Page, error) {
	f = f.WithDefaults()

	if f.Page < 1 {
		return post.Page{}, apperr.InvalidInput("page must be at least 1")
	}
	if f.Limit < 1 || f.Limit > post.MaxLimit {
		return post.Page{}, apperr.InvalidInput("limit must be between 1 and 100")
	}

	q, err := s.buildQuery(ctx, f)
	if err != nil {
		return post.Page{}, err
	}

	posts, err := s.posts.List(ctx, q)
	if err != nil {
		return post.Page{}, err
	}

	total, err := s.posts.Count(ctx, q)
	if err != nil {
		return post.Page{}, err
	}

	if err := s.attachComments(ctx, posts); err != nil {
		return post.Page{}, err
	}

	return post.Page{
		Posts:         posts,
		NumberOfPages: post.TotalPages(total, f.Limit),
	}, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (post.Post, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			return post.Post{}, apperr.NotFound("Post not found")
		}
		return post.Post{}, err
	}

	comments, err := s.comments.ListByPost(ctx, p.ID)
	if err != nil {
		return post.Post{}, err
	}
	p.Comments = comments
	return p, nil
}

func (s *Service) CreatePost(ctx context.Context, session authctx.Session, req post.CreatePostRequest) (post.Post, error) {
	id, err := access.Decide(session, access.CreatePost, nil)
	if err != nil {
		return post.Post{}, err
	}

	if err := validation.Struct(req); err != nil {
		return post.Post{}, err
	}

	created, err := s.posts.Create(ctx, post.NewPost(id.ID, req, s.now()))
	if err != nil {
		return post.Post{}, err
	}
	created.Comments = []post.Comment{}

	s.log.InfoContext(ctx, "post_created", "post_id", created.ID, "author_id", id.ID)
	return created, nil
}

// CreateComment does not check that the post exists.
func (s *Service) CreateComment(ctx context.Context, session authctx.Session, req post.CreateCommentRequest) (post.Comment, error) {
	id, err := access.Decide(session, access.CreateComment, nil)
	if err != nil {
		return post.Comment{}, err
	}

	if err := validation.Struct(req); err != nil {
		return post.Comment{}, err
	}

	created, err := s.comments.Create(ctx, post.NewComment(id.ID, req, s.now()))
	if err != nil {
		return post.Comment{}, err
	}

	s.log.InfoContext(ctx, "comment_created", "comment_id", created.ID, "post_id", created.PostID, "author_id", id.ID)
	return created, nil
}

// DeletePost removes the comments of a post, then the post, and returns the
// deleted post with the comments it had. Existence and ownership are checked
// before deleting without a transaction; a concurrent delete in between
// surfaces as NotFound.
func (s *Service) DeletePost(ctx context.Context, session authctx.Session, postID string) (post.Post, error) {
	if _, err := access.Decide(session, access.DeletePost, nil); err != nil {
		return post.Post{}, err
	}

	existing, err := s.posts.GetByID(ctx, postID)
	target := access.Owned(existing.Author.ID)
	if err != nil {
		if !errors.Is(err, post.ErrNotFound) {
			return post.Post{}, err
		}
		target = access.Missing()
	}

	actor, err := access.Decide(session, access.DeletePost, target)
	if err != nil {
		return post.Post{}, err
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}

	if _, err := s.comments.DeleteByPost(ctx, postID); err != nil {
		return post.Post{}, err
	}

	deleted, err := s.posts.Delete(ctx, postID)
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			return post.Post{}, apperr.NotFound("Post not found or already deleted")
		}
		return post.Post{}, err
	}
	deleted.Comments = comments

	s.log.InfoContext(ctx, "post_deleted", "post_id", postID, "actor_id", actor.ID, "comments_removed", len(comments))
	return deleted, nil
}

func (s *Service) DeleteComment(ctx context.Context, session authctx.Session, commentID string) (post.Comment, error) {
	if _, err := access.Decide(session, access.DeleteComment, nil); err != nil {
		return post.Comment{}, err
	}

	existing, err := s.comments.GetByID(ctx, commentID)
	target := access.Owned(existing.Author.ID)
	if err != nil {
		if !errors.Is(err, post.ErrCommentNotFound) {
			return post.Comment{}, err
		}
		target = access.Missing()
	}

	actor, err := access.Decide(session, access.DeleteComment, target)
	if err != nil {
		return post.Comment{}, err
	}

	deleted, err := s.comments.Delete(ctx, commentID)
	if err != nil {
		if errors.Is(err, post.ErrCommentNotFound) {
			return post.Comment{}, apperr.NotFound("Comment not found or already deleted")
		}
		return post.Comment{}, err
	}

	s.log.InfoContext(ctx, "comment_deleted", "comment_id", commentID, "actor_id", actor.ID)
	return deleted, nil
}

func (s *Service) buildQuery(ctx context.Context, f post.Filter) (post.Query, error) {
	q := post.Query{
		From:   f.StartDate,
		To:     f.EndDate,
		Order:  f.Order,
		Limit:  f.Limit,
		Offset: f.Offset(),
	}

	if f.Title != nil && *f.Title != "" {
		q.Title = f.Title
	}

	if f.AuthorName != nil && strings.TrimSpace(*f.AuthorName) != "" {
		author, err := s.users.GetByUsername(ctx, user.NormalizeUsername(*f.AuthorName))
		switch {
		case errors.Is(err, user.ErrNotFound):
			// unknown author: the clause matches nothing
			q.MatchNone = true
		case err != nil:
			return post.Query{}, err
		default:
			q.AuthorID = &author.ID
		}
	}

	return q, nil
}

func (s *Service) attachComments(ctx context.Context, posts []post.Post) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commentLoaders)

	for i := range posts {
		i := i
		g.Go(func() error {
			comments, err := s.comments.ListByPost(gctx, posts[i].ID)
			if err != nil {
				return err
			}
			posts[i].Comments = comments
			return nil
		})
	}

	return g.Wait()
}

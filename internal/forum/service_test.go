package forum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/geocoder89/fraghub/internal/repo/memory"
)

type fixture struct {
	svc      *Service
	users    *memory.UsersRepo
	posts    *memory.PostsRepo
	comments *memory.CommentsRepo
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := memory.NewUsersRepo()
	posts := memory.NewPostsRepo(users)
	comments := memory.NewCommentsRepo(users)

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{users: users, posts: posts, comments: comments, clock: &clock}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(posts, comments, users, log).WithClock(func() time.Time {
		now := *f.clock
		*f.clock = now.Add(time.Minute)
		return now
	})
	return f
}

func (f *fixture) addUser(t *testing.T, username string, role user.Role) authctx.Session {
	t.Helper()

	u, err := f.users.Create(context.Background(), user.User{
		ID:       "id-" + username,
		Username: username,
		Email:    username + "@x.com",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return authctx.Authenticated{Token: "tok-" + username, Identity: u.Identity()}
}

func (f *fixture) mustPost(t *testing.T, s authctx.Session, title string) post.Post {
	t.Helper()

	p, err := f.svc.CreatePost(context.Background(), s, post.CreatePostRequest{Title: title, Content: "body of " + title})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func ptr[T any](v T) *T { return &v }

func titles(posts []post.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestForumScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.addUser(t, "alice", user.RoleUser)
	b := f.addUser(t, "bob", user.RoleUser)

	p := f.mustPost(t, a, "T")
	if len(p.Comments) != 0 || p.Author.Username != "alice" {
		t.Fatalf("unexpected created post %+v", p)
	}

	if _, err := f.svc.CreateComment(ctx, a, post.CreateCommentRequest{PostID: p.ID, Content: "hi"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	got, err := f.svc.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Title != "T" || len(got.Comments) != 1 || got.Comments[0].Content != "hi" || got.Comments[0].Author.ID != "id-alice" {
		t.Fatalf("unexpected post %+v", got)
	}

	if _, err := f.svc.DeletePost(ctx, b, p.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	deleted, err := f.svc.DeletePost(ctx, a, p.ID)
	if err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if deleted.ID != p.ID || len(deleted.Comments) != 1 || deleted.Comments[0].Content != "hi" {
		t.Fatalf("deleted post should carry its prior comments, got %+v", deleted)
	}

	if _, err := f.svc.GetPost(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	left, _ := f.comments.ListByPost(ctx, p.ID)
	if len(left) != 0 {
		t.Fatalf("comments should be removed with the post, %d left", len(left))
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateComment(ctx, authctx.Anonymous{}, post.CreateCommentRequest{PostID: "p", Content: "hi"})
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	stored, _ := f.comments.ListByPost(ctx, "p")
	if len(stored) != 0 {
		t.Fatalf("anonymous comment must not be persisted")
	}

	if _, err := f.svc.CreatePost(ctx, authctx.Anonymous{}, post.CreatePostRequest{Title: "x", Content: "y"}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "alice", user.RoleUser)

	_, err := f.svc.CreatePost(context.Background(), a, post.CreatePostRequest{Title: "", Content: "y"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCreateCommentOnUnknownPostIsAccepted(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "alice", user.RoleUser)

	c, err := f.svc.CreateComment(context.Background(), a, post.CreateCommentRequest{PostID: "does-not-exist", Content: "orphan"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.PostID != "does-not-exist" {
		t.Fatalf("unexpected comment %+v", c)
	}
}

func TestDeleteOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.addUser(t, "alice", user.RoleUser)
	b := f.addUser(t, "bob", user.RoleUser)
	root := f.addUser(t, "root", user.RoleAdmin)

	if _, err := f.svc.DeletePost(ctx, authctx.Anonymous{}, "missing"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("anonymous delete: got %v", err)
	}
	if _, err := f.svc.DeletePost(ctx, b, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing post: got %v", err)
	}
	if _, err := f.svc.DeleteComment(ctx, b, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing comment: got %v", err)
	}

	p := f.mustPost(t, a, "owned by alice")
	c, err := f.svc.CreateComment(ctx, a, post.CreateCommentRequest{PostID: p.ID, Content: "mine"})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if _, err := f.svc.DeleteComment(ctx, b, c.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner comment delete: got %v", err)
	}

	deleted, err := f.svc.DeleteComment(ctx, root, c.ID)
	if err != nil {
		t.Fatalf("admin comment delete: %v", err)
	}
	if deleted.ID != c.ID {
		t.Fatalf("unexpected deleted comment %+v", deleted)
	}

	if _, err := f.svc.DeletePost(ctx, root, p.ID); err != nil {
		t.Fatalf("admin post delete: %v", err)
	}
}

type racingPosts struct {
	*memory.PostsRepo
}

func (r racingPosts) Delete(context.Context, string) (post.Post, error) {
	return post.Post{}, post.ErrNotFound
}

func TestDeletePostRaceSurfacesNotFound(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "alice", user.RoleUser)
	p := f.mustPost(t, a, "racy")

	svc := NewService(racingPosts{f.posts}, f.comments, f.users, nil)

	_, err := svc.DeletePost(context.Background(), a, p.ID)
	if !errors.Is(err, apperr.ErrNotFound) || err.Error() != "Post not found or already deleted" {
		t.Fatalf("expected race not found, got %v", err)
	}
}

func TestListPostsFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.addUser(t, "alice", user.RoleUser)
	b := f.addUser(t, "bob", user.RoleUser)

	// created one minute apart starting at 12:00
	f.mustPost(t, a, "FOO news")  // 12:00
	f.mustPost(t, b, "bar")       // 12:01
	f.mustPost(t, a, "Foo123")    // 12:02
	f.mustPost(t, b, "about foo") // 12:03

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter post.Filter
		want   []string
	}{
		{name: "no_filter_ascending", filter: post.Filter{}, want: []string{"FOO news", "bar", "Foo123", "about foo"}},
		{name: "descending", filter: post.Filter{Order: post.SortDesc}, want: []string{"about foo", "Foo123", "bar", "FOO news"}},
		{name: "title_case_insensitive", filter: post.Filter{Title: ptr("foo")}, want: []string{"FOO news", "Foo123", "about foo"}},
		{name: "author", filter: post.Filter{AuthorName: ptr("Alice")}, want: []string{"FOO news", "Foo123"}},
		{name: "unknown_author_matches_nothing", filter: post.Filter{AuthorName: ptr("nobody")}, want: []string{}},
		{name: "date_range_inclusive", filter: post.Filter{StartDate: ptr(base.Add(time.Minute)), EndDate: ptr(base.Add(2 * time.Minute))}, want: []string{"bar", "Foo123"}},
		{name: "start_only", filter: post.Filter{StartDate: ptr(base.Add(2 * time.Minute))}, want: []string{"Foo123", "about foo"}},
		{name: "end_only", filter: post.Filter{EndDate: ptr(base)}, want: []string{"FOO news"}},
		{name: "combined", filter: post.Filter{Title: ptr("foo"), AuthorName: ptr("bob")}, want: []string{"about foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.ListPosts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}

			got := titles(page.Posts)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListPostsPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addUser(t, "alice", user.RoleUser)

	for i := 0; i < 32; i++ {
		f.mustPost(t, a, fmt.Sprintf("post-%02d", i))
	}

	page, err := f.svc.ListPosts(ctx, post.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Posts) != 15 || page.NumberOfPages != 3 {
		t.Fatalf("got %d posts and %d pages, want 15 and 3", len(page.Posts), page.NumberOfPages)
	}

	last, err := f.svc.ListPosts(ctx, post.Filter{Page: 3})
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if len(last.Posts) != 2 || last.Posts[0].Title != "post-30" || last.NumberOfPages != 3 {
		t.Fatalf("unexpected last page %v pages=%d", titles(last.Posts), last.NumberOfPages)
	}

	// the count covers the full filtered set even past the last page
	beyond, err := f.svc.ListPosts(ctx, post.Filter{Page: 9, Limit: 10})
	if err != nil {
		t.Fatalf("list beyond: %v", err)
	}
	if len(beyond.Posts) != 0 || beyond.NumberOfPages != 4 {
		t.Fatalf("got %d posts and %d pages, want 0 and 4", len(beyond.Posts), beyond.NumberOfPages)
	}

	filtered, err := f.svc.ListPosts(ctx, post.Filter{Title: ptr("post-1"), Limit: 4})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	// post-10 through post-19
	if filtered.NumberOfPages != 3 {
		t.Fatalf("got %d pages, want 3", filtered.NumberOfPages)
	}
}

func TestListPostsRejectsBadPaging(t *testing.T) {
	f := newFixture(t)

	for _, filter := range []post.Filter{{Page: -1}, {Limit: -5}, {Limit: 101}} {
		if _, err := f.svc.ListPosts(context.Background(), filter); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Fatalf("filter %+v: expected invalid input, got %v", filter, err)
		}
	}
}

func TestListPostsAttachesOrderedComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addUser(t, "alice", user.RoleUser)
	b := f.addUser(t, "bob", user.RoleUser)

	p1 := f.mustPost(t, a, "one")
	p2 := f.mustPost(t, a, "two")

	for _, c := range []struct {
		s      authctx.Session
		postID string
		text   string
	}{
		{b, p1.ID, "first"},
		{a, p2.ID, "other post"},
		{a, p1.ID, "second"},
	} {
		if _, err := f.svc.CreateComment(ctx, c.s, post.CreateCommentRequest{PostID: c.postID, Content: c.text}); err != nil {
			t.Fatalf("comment: %v", err)
		}
	}

	page, err := f.svc.ListPosts(ctx, post.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	one := page.Posts[0]
	if len(one.Comments) != 2 || one.Comments[0].Content != "first" || one.Comments[1].Content != "second" {
		t.Fatalf("unexpected comments on first post: %+v", one.Comments)
	}
	if one.Comments[0].Author.Username != "bob" {
		t.Fatalf("comment author not populated: %+v", one.Comments[0].Author)
	}
	if len(page.Posts[1].Comments) != 1 {
		t.Fatalf("unexpected comments on second post: %+v", page.Posts[1].Comments)
	}
}

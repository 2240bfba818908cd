package graph

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/geocoder89/fraghub/internal/accounts"
	"github.com/geocoder89/fraghub/internal/auth"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/forum"
	"github.com/geocoder89/fraghub/internal/ratelimit"
	"github.com/geocoder89/fraghub/internal/repo/memory"
	"github.com/geocoder89/fraghub/internal/security"
	"github.com/graphql-go/graphql"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	t       *testing.T
	schema  graphql.Schema
	builder *authctx.Builder
}

func newHarness(t *testing.T, mutate func(r *Resolver)) *harness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := memory.NewUsersRepo()
	posts := memory.NewPostsRepo(users)
	comments := memory.NewCommentsRepo(users)
	tokens := auth.NewManager("graph-test-secret", time.Hour)

	r := &Resolver{
		Forum:    forum.NewService(posts, comments, users, log),
		Accounts: accounts.NewService(users, security.NewHasher(bcrypt.MinCost), tokens, log),
		Stats:    fakeStats{},
		Log:      log,
	}
	if mutate != nil {
		mutate(r)
	}

	schema, err := NewSchema(r)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return &harness{t: t, schema: schema, builder: authctx.NewBuilder(tokens)}
}

type gqlError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions"`
}

type gqlResult struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

// do runs a document as the holder of token ("" for anonymous).
func (h *harness) do(token, query string, vars map[string]interface{}) gqlResult {
	h.t.Helper()

	ctx := authctx.WithSession(context.Background(), h.builder.FromHeader("Bearer "+token))
	ctx = WithClientIP(ctx, "10.0.0.1")

	res := Execute(ctx, h.schema, Request{Query: query, Variables: vars})

	raw, err := json.Marshal(res)
	if err != nil {
		h.t.Fatalf("marshal result: %v", err)
	}

	var out gqlResult
	if err := json.Unmarshal(raw, &out); err != nil {
		h.t.Fatalf("unmarshal result: %v", err)
	}
	return out
}

func (h *harness) mustData(token, query string, vars map[string]interface{}, field string, into interface{}) {
	h.t.Helper()

	res := h.do(token, query, vars)
	if len(res.Errors) > 0 {
		h.t.Fatalf("%s: unexpected errors %+v", field, res.Errors)
	}
	if err := json.Unmarshal(res.Data[field], into); err != nil {
		h.t.Fatalf("%s: decode: %v", field, err)
	}
}

func (h *harness) expectError(res gqlResult, code, message string) {
	h.t.Helper()

	if len(res.Errors) != 1 {
		h.t.Fatalf("expected one error, got %+v", res.Errors)
	}
	e := res.Errors[0]
	if e.Extensions["code"] != code || e.Message != message {
		h.t.Fatalf("got %q (%v), want %q (%s)", e.Message, e.Extensions["code"], message, code)
	}
}

const (
	registerDoc = `mutation($u: UserInput!) { register(user: $u) { message user { id username email } } }`
	loginDoc    = `mutation($c: Credentials!) { login(credentials: $c) { message token user { id username } } }`
)

type userOut struct {
	ID       string  `json:"id"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
}

type commentOut struct {
	ID      string  `json:"id"`
	PostID  string  `json:"postId"`
	Content string  `json:"content"`
	Author  userOut `json:"author"`
}

type postOut struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	CreatedAt string       `json:"createdAt"`
	Author    userOut      `json:"author"`
	Comments  []commentOut `json:"comments"`
}

func (h *harness) registerAndLogin(username, email string) (string, userOut) {
	h.t.Helper()

	var reg struct {
		Message string  `json:"message"`
		User    userOut `json:"user"`
	}
	h.mustData("", registerDoc, map[string]interface{}{
		"u": map[string]interface{}{"username": username, "email": email, "password": "password123"},
	}, "register", &reg)
	if reg.Message != msgRegistered {
		h.t.Fatalf("unexpected register message %q", reg.Message)
	}

	var login struct {
		Message string  `json:"message"`
		Token   string  `json:"token"`
		User    userOut `json:"user"`
	}
	h.mustData("", loginDoc, map[string]interface{}{
		"c": map[string]interface{}{"username": email, "password": "password123"},
	}, "login", &login)
	if login.Token == "" || login.User.ID != reg.User.ID {
		h.t.Fatalf("unexpected login %+v", login)
	}
	return login.Token, reg.User
}

func TestForumScenarioOverGraphQL(t *testing.T) {
	h := newHarness(t, nil)

	tokenA, a := h.registerAndLogin("alice", "a@x.com")
	tokenB, _ := h.registerAndLogin("bob", "b@x.com")

	var created struct {
		Message  string  `json:"message"`
		Response postOut `json:"response"`
	}
	h.mustData(tokenA, `mutation { createPost(postContent: {title: "T", content: "C"}) { message response { id title comments { id } } } }`,
		nil, "createPost", &created)
	if created.Message != msgPostCreated || created.Response.Title != "T" || len(created.Response.Comments) != 0 {
		t.Fatalf("unexpected createPost %+v", created)
	}
	postID := created.Response.ID

	var comment struct {
		Response commentOut `json:"response"`
	}
	h.mustData(tokenA, `mutation($c: WriteComment!) { createComment(commentContent: $c) { response { id postId content } } }`,
		map[string]interface{}{"c": map[string]interface{}{"postId": postID, "content": "hi"}}, "createComment", &comment)
	if comment.Response.PostID != postID {
		t.Fatalf("unexpected comment %+v", comment)
	}

	var got postOut
	h.mustData("", `query($id: ID!) { postById(id: $id) { title createdAt author { id username } comments { content author { id } } } }`,
		map[string]interface{}{"id": postID}, "postById", &got)
	if got.Title != "T" || len(got.Comments) != 1 || got.Comments[0].Content != "hi" || got.Comments[0].Author.ID != a.ID {
		t.Fatalf("unexpected post %+v", got)
	}
	if _, err := time.Parse(time.RFC3339Nano, got.CreatedAt); err != nil {
		t.Fatalf("createdAt is not a timestamp: %q", got.CreatedAt)
	}

	deleteDoc := `mutation($id: ID!) { deletePost(id: $id) { message response { id comments { content } } } }`
	vars := map[string]interface{}{"id": postID}

	h.expectError(h.do(tokenB, deleteDoc, vars), "FORBIDDEN", "User is not permitted to delete this post")

	var deleted struct {
		Message  string  `json:"message"`
		Response postOut `json:"response"`
	}
	h.mustData(tokenA, deleteDoc, vars, "deletePost", &deleted)
	if deleted.Message != msgPostDeleted || len(deleted.Response.Comments) != 1 || deleted.Response.Comments[0].Content != "hi" {
		t.Fatalf("unexpected deletePost %+v", deleted)
	}

	h.expectError(h.do("", `query($id: ID!) { postById(id: $id) { id } }`, vars), "NOT_FOUND", "Post not found")
}

func TestAnonymousAndInvalidTokensAreUnauthenticated(t *testing.T) {
	h := newHarness(t, nil)

	doc := `mutation { createComment(commentContent: {postId: "p1", content: "hi"}) { message } }`

	h.expectError(h.do("", doc, nil), "UNAUTHENTICATED", "Trying to write comment without login")
	h.expectError(h.do("not-a-token", doc, nil), "UNAUTHENTICATED", "Trying to write comment without login")
	h.expectError(h.do("", `{ checkToken { message } }`, nil), "UNAUTHENTICATED", "No user in token")

	var page struct {
		Posts []postOut `json:"posts"`
	}
	h.mustData("", `{ getPosts { posts { id } numberOfPages } }`, nil, "getPosts", &page)
	if len(page.Posts) != 0 {
		t.Fatalf("anonymous comment attempt created data: %+v", page)
	}
}

func TestAccountsOverGraphQL(t *testing.T) {
	h := newHarness(t, nil)
	token, a := h.registerAndLogin("Alice", "a@x.com")

	if a.Username == nil || *a.Username != "alice" {
		t.Fatalf("username should be stored lowercase, got %+v", a)
	}

	h.expectError(h.do("", registerDoc, map[string]interface{}{
		"u": map[string]interface{}{"username": "other", "email": "a@x.com", "password": "password123"},
	}), "CONFLICT", "User already registered on that email")

	h.expectError(h.do("", loginDoc, map[string]interface{}{
		"c": map[string]interface{}{"username": "alice", "password": "wrong-password"},
	}), "INVALID_CREDENTIALS", "Invalid password")

	var check struct {
		Message string  `json:"message"`
		User    userOut `json:"user"`
	}
	h.mustData(token, `{ checkToken { message user { id } } }`, nil, "checkToken", &check)
	if check.Message != msgTokenVerified || check.User.ID != a.ID {
		t.Fatalf("unexpected checkToken %+v", check)
	}

	var missing *userOut
	h.mustData("", `{ userById(id: "nope") { id } }`, nil, "userById", &missing)
	if missing != nil {
		t.Fatalf("expected null user, got %+v", missing)
	}

	h.expectError(h.do(token, `mutation { updateUser(user: {role: "admin"}) { message } }`, nil), "FORBIDDEN", "Only admins can change roles")

	var updated struct {
		User userOut `json:"user"`
	}
	h.mustData(token, `mutation { updateUser(user: {username: "Alicia"}) { user { username } } }`, nil, "updateUser", &updated)
	if updated.User.Username == nil || *updated.User.Username != "alicia" {
		t.Fatalf("unexpected update %+v", updated)
	}

	var removed struct {
		Message string `json:"message"`
	}
	h.mustData(token, `mutation { deleteUser { message } }`, nil, "deleteUser", &removed)
	if removed.Message != msgUserDeleted {
		t.Fatalf("unexpected deleteUser %+v", removed)
	}

	var users []userOut
	h.mustData("", `{ users { id } }`, nil, "users", &users)
	if len(users) != 0 {
		t.Fatalf("expected no users, got %+v", users)
	}
}

func TestGetPostsFilterAndPaging(t *testing.T) {
	h := newHarness(t, nil)
	token, _ := h.registerAndLogin("alice", "a@x.com")

	for _, title := range []string{"FOO", "bar", "Foo123"} {
		h.mustData(token, `mutation($t: String!) { createPost(postContent: {title: $t, content: "c"}) { message } }`,
			map[string]interface{}{"t": title}, "createPost", &struct{}{})
	}

	var page struct {
		Posts         []postOut `json:"posts"`
		NumberOfPages int       `json:"numberOfPages"`
	}
	h.mustData("", `{ getPosts(filter: {title: "foo", limit: 1, sortOrder: DESC}) { posts { title } numberOfPages } }`, nil, "getPosts", &page)
	if len(page.Posts) != 1 || page.Posts[0].Title != "Foo123" || page.NumberOfPages != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	h.mustData("", `{ getPosts(filter: {authorName: "ghost"}) { posts { title } numberOfPages } }`, nil, "getPosts", &page)
	if len(page.Posts) != 0 || page.NumberOfPages != 0 {
		t.Fatalf("unknown author should match nothing, got %+v", page)
	}

	h.mustData("", `{ getPosts(filter: {startDate: "2000-01-01", endDate: "2999-12-31"}) { posts { title } } }`, nil, "getPosts", &page)
	if len(page.Posts) != 3 {
		t.Fatalf("expected all posts inside the date range, got %+v", page)
	}

	h.expectError(h.do("", `{ getPosts(filter: {startDate: "yesterday"}) { numberOfPages } }`, nil), "BAD_USER_INPUT",
		"Invalid input: startDate must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	h.expectError(h.do("", `{ getPosts(filter: {limit: 0}) { numberOfPages } }`, nil), "BAD_USER_INPUT", "limit must be between 1 and 100")
}

func TestParseFilterDateBounds(t *testing.T) {
	midnight := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	noon := midnight.Add(12 * time.Hour)

	tests := []struct {
		name      string
		in        map[string]interface{}
		wantStart *time.Time
		wantEnd   *time.Time
	}{
		{"plain_end_date_is_midnight", map[string]interface{}{"endDate": "2024-01-01"}, nil, &midnight},
		{"plain_start_date_is_midnight", map[string]interface{}{"startDate": "2024-01-01"}, &midnight, nil},
		{"timestamp_is_kept", map[string]interface{}{"endDate": "2024-01-01T12:00:00Z"}, nil, &noon},
		{"offset_is_normalized", map[string]interface{}{"endDate": "2024-01-01T14:00:00+02:00"}, nil, &noon},
		{"open_range", map[string]interface{}{}, nil, nil},
	}

	sameTime := func(got, want *time.Time) bool {
		if got == nil || want == nil {
			return got == want
		}
		return got.Equal(*want)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFilter(tt.in)
			if err != nil {
				t.Fatalf("parseFilter: %v", err)
			}
			if !sameTime(f.StartDate, tt.wantStart) || !sameTime(f.EndDate, tt.wantEnd) {
				t.Fatalf("got start=%v end=%v, want start=%v end=%v", f.StartDate, f.EndDate, tt.wantStart, tt.wantEnd)
			}
		})
	}

	f, _ := parseFilter(map[string]interface{}{"endDate": "2024-01-01"})
	if !noon.After(*f.EndDate) {
		t.Fatalf("a post created at %v must fall after the end bound %v", noon, *f.EndDate)
	}
}

type fakeStats struct{}

func (fakeStats) Streams(context.Context) (any, error) { return []any{map[string]any{"name": "main"}}, nil }
func (fakeStats) TeamRanking(context.Context) (any, error) {
	return []any{map[string]any{"place": 1}}, nil
}
func (fakeStats) Team(_ context.Context, id int) (any, error) {
	return map[string]any{"id": id, "name": "Vitality"}, nil
}
func (fakeStats) PlayerRanking(context.Context) (any, error)   { return []any{}, nil }
func (fakeStats) Player(_ context.Context, id int) (any, error) { return map[string]any{"id": id}, nil }
func (fakeStats) Events(context.Context) (any, error)          { return []any{}, nil }
func (fakeStats) Event(_ context.Context, id int) (any, error)  { return map[string]any{"id": id}, nil }
func (fakeStats) News(context.Context) (any, error)            { return []any{}, nil }
func (fakeStats) EventByName(_ context.Context, name string) (any, error) {
	return map[string]any{"name": name}, nil
}
func (fakeStats) TeamByName(_ context.Context, name string) (any, error) {
	return map[string]any{"name": name}, nil
}
func (fakeStats) PlayerByName(_ context.Context, name string) (any, error) {
	return map[string]any{"name": name}, nil
}

func TestStatsPassthrough(t *testing.T) {
	h := newHarness(t, nil)

	var team map[string]interface{}
	h.mustData("", `{ getTeam(id: 9565) }`, nil, "getTeam", &team)
	if team["name"] != "Vitality" || team["id"] != float64(9565) {
		t.Fatalf("unexpected team %+v", team)
	}

	var player map[string]interface{}
	h.mustData("", `{ getPlayerByName(name: "s1mple") }`, nil, "getPlayerByName", &player)
	if player["name"] != "s1mple" {
		t.Fatalf("unexpected player %+v", player)
	}

	disabled := newHarness(t, func(r *Resolver) { r.Stats = nil })
	disabled.expectError(disabled.do("", `{ getNews }`, nil), "SERVICE_UNAVAILABLE", "Stats provider unavailable")
}

func TestRateLimitedField(t *testing.T) {
	h := newHarness(t, func(r *Resolver) {
		r.Guard = ratelimit.NewGuard(ratelimit.NewMemoryLimiter(), map[string]ratelimit.Rule{
			"getStreams": {Max: 1, Window: time.Minute},
		}, nil, r.Log)
	})

	var streams []interface{}
	h.mustData("", `{ getStreams }`, nil, "getStreams", &streams)

	res := h.do("", `{ getStreams }`, nil)
	h.expectError(res, "RATE_LIMITED", "Too many requests. Please try again shortly.")

	if got := res.Errors[0].Extensions["retryAfter"]; got != float64(60) {
		t.Fatalf("retryAfter = %v, want 60", got)
	}
}

func TestOperationName(t *testing.T) {
	tests := []struct {
		name  string
		query string
		op    string
		want  string
	}{
		{name: "explicit", query: `query Q { users { id } } query R { users { id } }`, op: "R", want: "R"},
		{name: "single_named", query: `mutation Login { checkToken { message } }`, want: "Login"},
		{name: "anonymous", query: `{ users { id } }`, want: ""},
		{name: "ambiguous", query: `query Q { users { id } } query R { users { id } }`, want: ""},
		{name: "garbage", query: `{{{`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OperationName(tt.query, tt.op); got != tt.want {
				t.Fatalf("OperationName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		op    string
		want  bool
	}{
		{name: "shorthand", query: `{ users { id } }`, want: true},
		{name: "named_query", query: `query Q { users { id } }`, want: true},
		{name: "mutation", query: `mutation { deleteUser { message } }`, want: false},
		{name: "pick_by_name", query: `query Q { users { id } } mutation M { deleteUser { message } }`, op: "M", want: false},
		{name: "ambiguous", query: `query Q { users { id } } query R { users { id } }`, want: false},
		{name: "garbage", query: `{{{`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuery(tt.query, tt.op); got != tt.want {
				t.Fatalf("IsQuery = %v, want %v", got, tt.want)
			}
		})
	}
}

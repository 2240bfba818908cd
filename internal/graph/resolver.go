package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/fraghub/internal/accounts"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/geocoder89/fraghub/internal/observability"
	"github.com/graphql-go/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/geocoder89/fraghub/internal/graph"

type ForumService interface {
	ListPosts(ctx context.Context, f post.Filter) (post.Page, error)
	GetPost(ctx context.Context, id string) (post.Post, error)
	CreatePost(ctx context.Context, s authctx.Session, req post.CreatePostRequest) (post.Post, error)
	CreateComment(ctx context.Context, s authctx.Session, req post.CreateCommentRequest) (post.Comment, error)
	DeletePost(ctx context.Context, s authctx.Session, id string) (post.Post, error)
	DeleteComment(ctx context.Context, s authctx.Session, id string) (post.Comment, error)
}

type AccountService interface {
	Register(ctx context.Context, req user.RegisterRequest) (user.Identity, error)
	Login(ctx context.Context, req user.LoginRequest) (accounts.LoginResult, error)
	ListUsers(ctx context.Context) ([]user.Identity, error)
	GetUser(ctx context.Context, id string) (*user.Identity, error)
	CheckToken(s authctx.Session) (user.Identity, error)
	UpdateUser(ctx context.Context, s authctx.Session, req user.UpdateRequest, id string) (user.Identity, error)
	DeleteUser(ctx context.Context, s authctx.Session, id string) (user.Identity, error)
}

type StatsProvider interface {
	Streams(ctx context.Context) (any, error)
	TeamRanking(ctx context.Context) (any, error)
	Team(ctx context.Context, id int) (any, error)
	PlayerRanking(ctx context.Context) (any, error)
	Player(ctx context.Context, id int) (any, error)
	Events(ctx context.Context) (any, error)
	Event(ctx context.Context, id int) (any, error)
	News(ctx context.Context) (any, error)
	EventByName(ctx context.Context, name string) (any, error)
	TeamByName(ctx context.Context, name string) (any, error)
	PlayerByName(ctx context.Context, name string) (any, error)
}

// RateGuard counts one call of a root field by a caller.
type RateGuard interface {
	Check(ctx context.Context, field, subject string) error
}

type Resolver struct {
	Forum    ForumService
	Accounts AccountService
	Stats    StatsProvider
	Guard    RateGuard
	Prom     *observability.Prom
	Log      *slog.Logger
}

type resolveFn func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// root wraps a root field resolver with rate limiting, tracing, metrics and
// error translation.
func (r *Resolver) root(fn resolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		field := p.Info.FieldName
		ctx := p.Context
		if ctx == nil {
			ctx = context.Background()
		}

		ctx, span := otel.Tracer(tracerName).Start(ctx, "graphql."+field)
		defer span.End()
		span.SetAttributes(attribute.String("graphql.field", field))

		start := time.Now()
		out, err := r.call(ctx, field, p.Args, fn)
		r.Prom.ObserveResolver(field, outcome(err), time.Since(start))

		if err != nil {
			gerr := toGraphError(ctx, r.logger(), field, err)
			span.SetStatus(codes.Error, gerr.Code)
			span.SetAttributes(attribute.String("graphql.error_code", gerr.Code))
			return nil, gerr
		}
		return out, nil
	}
}

func (r *Resolver) call(ctx context.Context, field string, args map[string]interface{}, fn resolveFn) (interface{}, error) {
	if r.Guard != nil {
		if err := r.Guard.Check(ctx, field, subject(ctx)); err != nil {
			return nil, err
		}
	}
	return fn(ctx, args)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

// subject keys rate limits by user when known, by client address otherwise.
func subject(ctx context.Context) string {
	if id, ok := authctx.IdentityOf(authctx.From(ctx)); ok {
		return "user:" + id.ID
	}
	return "ip:" + ClientIP(ctx)
}

type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

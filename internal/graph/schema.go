// Package graph exposes the forum, account and stats operations as a
// GraphQL schema.
package graph

import (
	"context"

	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// JSON passes provider documents through untouched.
var JSON = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize:   func(v interface{}) interface{} { return v },
	ParseValue:  func(v interface{}) interface{} { return v },
	ParseLiteral: func(v ast.Value) interface{} {
		return literalValue(v)
	},
})

func literalValue(v ast.Value) interface{} {
	switch v := v.(type) {
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Name.Value] = literalValue(f.Value)
		}
		return out
	case *ast.ListValue:
		out := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, literalValue(item))
		}
		return out
	default:
		return v.GetValue()
	}
}

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"username": &graphql.Field{Type: graphql.String},
		"email":    &graphql.Field{Type: graphql.String},
		"role":     &graphql.Field{Type: graphql.String},
	},
})

var commentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Comment",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"postId":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"author":    &graphql.Field{Type: userType},
		"content":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
	},
})

var postType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Post",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"author":    &graphql.Field{Type: userType},
		"title":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"content":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"comments":  &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(commentType)))},
	},
})

var postPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PostPage",
	Fields: graphql.Fields{
		"posts":         &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(postType)))},
		"numberOfPages": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

func messageResponse(name, field string, t graphql.Output) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.Fields{
			"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			field:     &graphql.Field{Type: t},
		},
	})
}

var (
	postResponseType    = messageResponse("PostResponse", "response", postType)
	commentResponseType = messageResponse("CommentResponse", "response", commentType)
	userResponseType    = messageResponse("UserResponse", "user", userType)
)

var loginResponseType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LoginResponse",
	Fields: graphql.Fields{
		"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"token":   &graphql.Field{Type: graphql.String},
		"user":    &graphql.Field{Type: userType},
	},
})

var sortOrderEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "SortOrder",
	Values: graphql.EnumValueConfigMap{
		"ASC":  &graphql.EnumValueConfig{Value: "ASC"},
		"DESC": &graphql.EnumValueConfig{Value: "DESC"},
	},
})

func inputObject(name string, fields graphql.InputObjectConfigFieldMap) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{Name: name, Fields: fields})
}

var (
	requiredString = graphql.NewNonNull(graphql.String)

	postFilterInput = inputObject("PostFilter", graphql.InputObjectConfigFieldMap{
		"title":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"authorName": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"startDate":  &graphql.InputObjectFieldConfig{Type: graphql.String},
		"endDate":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"sortOrder":  &graphql.InputObjectFieldConfig{Type: sortOrderEnum},
		"page":       &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"limit":      &graphql.InputObjectFieldConfig{Type: graphql.Int},
	})
	writePostInput = inputObject("WritePost", graphql.InputObjectConfigFieldMap{
		"title":   &graphql.InputObjectFieldConfig{Type: requiredString},
		"content": &graphql.InputObjectFieldConfig{Type: requiredString},
	})
	writeCommentInput = inputObject("WriteComment", graphql.InputObjectConfigFieldMap{
		"postId":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"content": &graphql.InputObjectFieldConfig{Type: requiredString},
	})
	credentialsInput = inputObject("Credentials", graphql.InputObjectConfigFieldMap{
		"username": &graphql.InputObjectFieldConfig{Type: requiredString},
		"password": &graphql.InputObjectFieldConfig{Type: requiredString},
	})
	userInput = inputObject("UserInput", graphql.InputObjectConfigFieldMap{
		"username": &graphql.InputObjectFieldConfig{Type: requiredString},
		"email":    &graphql.InputObjectFieldConfig{Type: requiredString},
		"password": &graphql.InputObjectFieldConfig{Type: requiredString},
	})
	userModifyInput = inputObject("UserModify", graphql.InputObjectConfigFieldMap{
		"username": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"email":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"password": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"role":     &graphql.InputObjectFieldConfig{Type: graphql.String},
	})
)

func requiredArg(name string, t graphql.Input) graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{name: &graphql.ArgumentConfig{Type: graphql.NewNonNull(t)}}
}

// NewSchema builds the executable schema over r.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	query := graphql.Fields{
		"getPosts": &graphql.Field{
			Type: postPageType,
			Args: graphql.FieldConfigArgument{"filter": &graphql.ArgumentConfig{Type: postFilterInput}},
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				f, err := parseFilter(inputArg(args, "filter"))
				if err != nil {
					return nil, err
				}
				pg, err := r.Forum.ListPosts(ctx, f)
				if err != nil {
					return nil, err
				}
				return presentPage(pg), nil
			}),
		},
		"postById": &graphql.Field{
			Type: postType,
			Args: requiredArg("id", graphql.ID),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				p, err := r.Forum.GetPost(ctx, stringArg(args, "id"))
				if err != nil {
					return nil, err
				}
				return presentPost(p), nil
			}),
		},
		"users": &graphql.Field{
			Type: graphql.NewList(userType),
			Resolve: r.root(func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
				users, err := r.Accounts.ListUsers(ctx)
				if err != nil {
					return nil, err
				}
				out := make([]interface{}, 0, len(users))
				for _, u := range users {
					out = append(out, presentIdentity(u))
				}
				return out, nil
			}),
		},
		"userById": &graphql.Field{
			Type: userType,
			Args: requiredArg("id", graphql.ID),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				u, err := r.Accounts.GetUser(ctx, stringArg(args, "id"))
				if err != nil || u == nil {
					return nil, err
				}
				return presentIdentity(*u), nil
			}),
		},
		"checkToken": &graphql.Field{
			Type: userResponseType,
			Resolve: r.root(func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
				id, err := r.Accounts.CheckToken(authctx.From(ctx))
				if err != nil {
					return nil, err
				}
				return userResponse(msgTokenVerified, id), nil
			}),
		},
	}

	for name, f := range r.statsFields() {
		query[name] = f
	}

	mutation := graphql.Fields{
		"createPost": &graphql.Field{
			Type: postResponseType,
			Args: requiredArg("postContent", writePostInput),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				in := inputArg(args, "postContent")
				p, err := r.Forum.CreatePost(ctx, authctx.From(ctx), post.CreatePostRequest{
					Title:   stringArg(in, "title"),
					Content: stringArg(in, "content"),
				})
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"message": msgPostCreated, "response": presentPost(p)}, nil
			}),
		},
		"createComment": &graphql.Field{
			Type: commentResponseType,
			Args: requiredArg("commentContent", writeCommentInput),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				in := inputArg(args, "commentContent")
				c, err := r.Forum.CreateComment(ctx, authctx.From(ctx), post.CreateCommentRequest{
					PostID:  stringArg(in, "postId"),
					Content: stringArg(in, "content"),
				})
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"message": msgCommentCreated, "response": presentComment(c)}, nil
			}),
		},
		"deletePost": &graphql.Field{
			Type: postResponseType,
			Args: requiredArg("id", graphql.ID),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				p, err := r.Forum.DeletePost(ctx, authctx.From(ctx), stringArg(args, "id"))
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"message": msgPostDeleted, "response": presentPost(p)}, nil
			}),
		},
		"deleteComment": &graphql.Field{
			Type: commentResponseType,
			Args: requiredArg("id", graphql.ID),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				c, err := r.Forum.DeleteComment(ctx, authctx.From(ctx), stringArg(args, "id"))
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"message": msgCommentDeleted, "response": presentComment(c)}, nil
			}),
		},
		"login": &graphql.Field{
			Type: loginResponseType,
			Args: requiredArg("credentials", credentialsInput),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				in := inputArg(args, "credentials")
				res, err := r.Accounts.Login(ctx, user.LoginRequest{
					Username: stringArg(in, "username"),
					Password: stringArg(in, "password"),
				})
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{
					"message": msgLogin,
					"token":   res.Token,
					"user":    presentIdentity(res.User),
				}, nil
			}),
		},
		"register": &graphql.Field{
			Type: userResponseType,
			Args: requiredArg("user", userInput),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				in := inputArg(args, "user")
				id, err := r.Accounts.Register(ctx, user.RegisterRequest{
					Username: stringArg(in, "username"),
					Email:    stringArg(in, "email"),
					Password: stringArg(in, "password"),
				})
				if err != nil {
					return nil, err
				}
				return userResponse(msgRegistered, id), nil
			}),
		},
		"updateUser": &graphql.Field{
			Type: userResponseType,
			Args: graphql.FieldConfigArgument{
				"user": &graphql.ArgumentConfig{Type: graphql.NewNonNull(userModifyInput)},
				"id":   &graphql.ArgumentConfig{Type: graphql.ID},
			},
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				id, err := r.Accounts.UpdateUser(ctx, authctx.From(ctx), parseUpdate(inputArg(args, "user")), stringArg(args, "id"))
				if err != nil {
					return nil, err
				}
				return userResponse(msgUserUpdated, id), nil
			}),
		},
		"deleteUser": &graphql.Field{
			Type: userResponseType,
			Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.ID}},
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				id, err := r.Accounts.DeleteUser(ctx, authctx.From(ctx), stringArg(args, "id"))
				if err != nil {
					return nil, err
				}
				return userResponse(msgUserDeleted, id), nil
			}),
		},
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: query}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutation}),
	})
}

func userResponse(msg string, id user.Identity) map[string]interface{} {
	return map[string]interface{}{"message": msg, "user": presentIdentity(id)}
}

func (r *Resolver) statsFields() graphql.Fields {
	var s StatsProvider = disabledStats{}
	if r.Stats != nil {
		s = r.Stats
	}

	list := func(fetch func(context.Context) (any, error)) *graphql.Field {
		return &graphql.Field{
			Type: JSON,
			Resolve: r.root(func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
				return fetch(ctx)
			}),
		}
	}
	byID := func(fetch func(context.Context, int) (any, error)) *graphql.Field {
		return &graphql.Field{
			Type: JSON,
			Args: requiredArg("id", graphql.Int),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return fetch(ctx, intArg(args, "id"))
			}),
		}
	}
	byName := func(fetch func(context.Context, string) (any, error)) *graphql.Field {
		return &graphql.Field{
			Type: JSON,
			Args: requiredArg("name", graphql.String),
			Resolve: r.root(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return fetch(ctx, stringArg(args, "name"))
			}),
		}
	}

	return graphql.Fields{
		"getStreams":       list(s.Streams),
		"getTeamRanking":   list(s.TeamRanking),
		"getTeam":          byID(s.Team),
		"getPlayerRanking": list(s.PlayerRanking),
		"getPlayer":        byID(s.Player),
		"getEvents":        list(s.Events),
		"getEvent":         byID(s.Event),
		"getNews":          list(s.News),
		"getEventByName":   byName(s.EventByName),
		"getTeamByName":    byName(s.TeamByName),
		"getPlayerByName":  byName(s.PlayerByName),
	}
}

var errStatsDisabled = apperr.Unavailable("Stats provider unavailable")

// disabledStats answers every stats query when no provider is configured.
type disabledStats struct{}

func (disabledStats) Streams(context.Context) (any, error)              { return nil, errStatsDisabled }
func (disabledStats) TeamRanking(context.Context) (any, error)          { return nil, errStatsDisabled }
func (disabledStats) Team(context.Context, int) (any, error)            { return nil, errStatsDisabled }
func (disabledStats) PlayerRanking(context.Context) (any, error)        { return nil, errStatsDisabled }
func (disabledStats) Player(context.Context, int) (any, error)          { return nil, errStatsDisabled }
func (disabledStats) Events(context.Context) (any, error)               { return nil, errStatsDisabled }
func (disabledStats) Event(context.Context, int) (any, error)           { return nil, errStatsDisabled }
func (disabledStats) News(context.Context) (any, error)                 { return nil, errStatsDisabled }
func (disabledStats) EventByName(context.Context, string) (any, error)  { return nil, errStatsDisabled }
func (disabledStats) TeamByName(context.Context, string) (any, error)   { return nil, errStatsDisabled }
func (disabledStats) PlayerByName(context.Context, string) (any, error) { return nil, errStatsDisabled }

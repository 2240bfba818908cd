package post

import (
	"errors"
	"time"

	"github.com/geocoder89/fraghub/internal/domain/user"
)

var (
	ErrNotFound        = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
)

const (
	DefaultPage  = 1
	DefaultLimit = 15
	MaxLimit     = 100
)

// Author is the populated author reference. Username is empty when the
// account was deleted after the post was written.
type Author struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Comments  []Comment `json:"comments"`
}

type Comment struct {
	ID string `json:"id"`
	// PostID is a plain back-reference, nothing enforces that the post exists.
	PostID    string    `json:"postId"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type SortOrder int

const (
	SortAsc  SortOrder = 1
	SortDesc SortOrder = -1
)

// ParseSortOrder maps "ASC"/"DESC" to a sort order, anything else sorts ascending.
func ParseSortOrder(s string) SortOrder {
	if s == "DESC" {
		return SortDesc
	}
	return SortAsc
}

// Filter is the caller-facing filter specification for listing posts.
type Filter struct {
	Title      *string
	AuthorName *string
	StartDate  *time.Time
	EndDate    *time.Time
	Order      SortOrder
	Page       int
	Limit      int
}

// WithDefaults fills in the page defaults.
func (f Filter) WithDefaults() Filter {
	if f.Order == 0 {
		f.Order = SortAsc
	}
	if f.Page == 0 {
		f.Page = DefaultPage
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Query is the store-level predicate built from a Filter. AuthorID is already
// resolved; MatchNone short-circuits to an empty result.
type Query struct {
	Title     *string
	AuthorID  *string
	From      *time.Time
	To        *time.Time
	MatchNone bool
	Order     SortOrder
	Limit     int
	Offset    int
}

type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=20000"`
}

type CreateCommentRequest struct {
	PostID  string `json:"postId" validate:"required"`
	Content string `json:"content" validate:"required,max=5000"`
}

// Page is one page of posts plus the total page count of the filtered set.
type Page struct {
	Posts         []Post `json:"posts"`
	NumberOfPages int    `json:"numberOfPages"`
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

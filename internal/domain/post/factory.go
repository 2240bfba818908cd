package post

import (
	"time"

	"github.com/google/uuid"
)

// stored timestamps keep microsecond precision
func stamp(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}

func NewPost(authorID string, req CreatePostRequest, now time.Time) Post {
	return Post{
		ID:        uuid.NewString(),
		Author:    Author{ID: authorID},
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: stamp(now),
		Comments:  []Comment{},
	}
}

func NewComment(authorID string, req CreateCommentRequest, now time.Time) Comment {
	return Comment{
		ID:        uuid.NewString(),
		PostID:    req.PostID,
		Author:    Author{ID: authorID},
		Content:   req.Content,
		CreatedAt: stamp(now),
	}
}

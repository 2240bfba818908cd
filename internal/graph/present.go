package graph

import (
	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
)

// Response messages.
const (
	msgPostCreated    = "Post created"
	msgCommentCreated = "Comment created"
	msgPostDeleted    = "Post deleted(with comments)"
	msgCommentDeleted = "Comment deleted"
	msgLogin          = "Login successful"
	msgRegistered     = "User created successfully"
	msgUserUpdated    = "User updated successfully"
	msgUserDeleted    = "User deleted successfully"
	msgTokenVerified  = "Token verified"
)

func presentIdentity(id user.Identity) map[string]interface{} {
	return map[string]interface{}{
		"id":       id.ID,
		"username": id.Username,
		"email":    id.Email,
		"role":     string(id.Role),
	}
}

// presentAuthor leaves the profile fields null once the account is gone.
func presentAuthor(a post.Author) map[string]interface{} {
	out := map[string]interface{}{
		"id":       a.ID,
		"username": nil,
		"email":    nil,
		"role":     nil,
	}
	if a.Username != "" {
		out["username"] = a.Username
		out["email"] = a.Email
		out["role"] = string(a.Role)
	}
	return out
}

func presentComment(c post.Comment) map[string]interface{} {
	return map[string]interface{}{
		"id":        c.ID,
		"postId":    c.PostID,
		"author":    presentAuthor(c.Author),
		"content":   c.Content,
		"createdAt": c.CreatedAt,
	}
}

func presentPost(p post.Post) map[string]interface{} {
	comments := make([]interface{}, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, presentComment(c))
	}

	return map[string]interface{}{
		"id":        p.ID,
		"author":    presentAuthor(p.Author),
		"title":     p.Title,
		"content":   p.Content,
		"createdAt": p.CreatedAt,
		"comments":  comments,
	}
}

func presentPage(pg post.Page) map[string]interface{} {
	posts := make([]interface{}, 0, len(pg.Posts))
	for _, p := range pg.Posts {
		posts = append(posts, presentPost(p))
	}

	return map[string]interface{}{
		"posts":         posts,
		"numberOfPages": pg.NumberOfPages,
	}
}

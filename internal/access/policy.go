// Package access decides whether a session may run an operation against a
// record. Checks run in a fixed order and the first failure wins:
// authentication, then existence, then ownership or role.
package access

import (
	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/domain/user"
)

type Operation string

const (
	CreatePost    Operation = "createPost"
	CreateComment Operation = "createComment"
	DeletePost    Operation = "deletePost"
	DeleteComment Operation = "deleteComment"
	UpdateUser    Operation = "updateUser"
	DeleteUser    Operation = "deleteUser"
	CheckToken    Operation = "checkToken"
	ChangeRole    Operation = "changeRole"
)

type messages struct {
	unauthenticated string
	notFound        string
	forbidden       string
}

var opMessages = map[Operation]messages{
	CreatePost:    {unauthenticated: "Trying to write post without login"},
	CreateComment: {unauthenticated: "Trying to write comment without login"},
	DeletePost: {
		unauthenticated: "User not authorized",
		notFound:        "Post not found",
		forbidden:       "User is not permitted to delete this post",
	},
	DeleteComment: {
		unauthenticated: "User not authorized",
		notFound:        "Comment not found",
		forbidden:       "User is not permitted to delete this comment",
	},
	UpdateUser: {
		unauthenticated: "User not logged in",
		notFound:        "User not found",
		forbidden:       "Unauthorized",
	},
	DeleteUser: {
		unauthenticated: "User not logged in",
		notFound:        "User not found",
		forbidden:       "Unauthorized",
	},
	CheckToken: {unauthenticated: "No user in token"},
	ChangeRole: {
		unauthenticated: "User not logged in",
		forbidden:       "Only admins can change roles",
	},
}

// Target describes the record an operation acts on. A nil target means the
// operation only needs an identity.
type Target struct {
	Exists  bool
	OwnerID string
}

// Owned is a convenience for a record known to exist.
func Owned(ownerID string) *Target {
	return &Target{Exists: true, OwnerID: ownerID}
}

func Missing() *Target {
	return &Target{}
}

// Decide returns the acting identity or the first failing condition.
// Owners and admins pass the ownership check.
func Decide(s authctx.Session, op Operation, target *Target) (user.Identity, error) {
	msg := opMessages[op]

	id, ok := authctx.IdentityOf(s)
	if !ok {
		return user.Identity{}, apperr.Unauthenticated(fallback(msg.unauthenticated, "Not authenticated"))
	}

	if target == nil {
		return id, nil
	}

	if !target.Exists {
		return user.Identity{}, apperr.NotFound(fallback(msg.notFound, "Not found"))
	}

	if !CanActOn(id, target.OwnerID) {
		return user.Identity{}, apperr.Forbidden(fallback(msg.forbidden, "Forbidden"))
	}

	return id, nil
}

// RequireAdmin passes only admin identities.
func RequireAdmin(s authctx.Session, op Operation) (user.Identity, error) {
	msg := opMessages[op]

	id, ok := authctx.IdentityOf(s)
	if !ok {
		return user.Identity{}, apperr.Unauthenticated(fallback(msg.unauthenticated, "Not authenticated"))
	}
	if !id.IsAdmin() {
		return user.Identity{}, apperr.Forbidden(fallback(msg.forbidden, "Admin role required"))
	}
	return id, nil
}

// CanActOn is the ownership-or-admin rule.
func CanActOn(id user.Identity, ownerID string) bool {
	if id.IsAdmin() {
		return true
	}
	return ownerID != "" && id.ID == ownerID
}

// TargetUserID resolves the user record a self-or-admin operation acts on:
// the caller's own id when requested is empty.
func TargetUserID(id user.Identity, requested string) string {
	if requested == "" {
		return id.ID
	}
	return requested
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

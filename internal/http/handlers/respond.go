package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is a transport level failure, rendered in the GraphQL error
// envelope so clients parse one shape.
type APIError struct {
	Message    string        `json:"message"`
	Extensions APIErrorExtra `json:"extensions"`
}

type APIErrorExtra struct {
	Code      string      `json:"code"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"errors": []APIError{{
			Message: message,
			Extensions: APIErrorExtra{
				Code:      code,
				RequestID: requestIDFrom(ctx),
				Details:   details,
			},
		}},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func RespondMethodNotAllowed(ctx *gin.Context, message string) {
	ctx.Header("Allow", "POST")
	RespondError(ctx, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, nil)
}

package middlewares

// Gin context keys.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "user_id"
)

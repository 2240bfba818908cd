package middlewares

import (
	"log/slog"
	"time"

	"github.com/geocoder89/fraghub/internal/http/handlers"
	"github.com/geocoder89/fraghub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)

		if id == "" {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Set(CtxRequestID, id)
		// service logs read the id from the request context
		ctx.Request = ctx.Request.WithContext(observability.WithRequestID(ctx.Request.Context(), id))

		ctx.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path // fallback (e.g. 404)
		}

		method := ctx.Request.Method

		ctx.Next()

		lat := time.Since(start)
		status := ctx.Writer.Status()

		logAttrs := []any{
			"method", method,
			"route", route,
			"status", status,
			"latency_ms", lat.Milliseconds(),
		}

		if userID := ctx.GetString(CtxUserID); userID != "" {
			logAttrs = append(logAttrs, "user_id", userID)
		}
		if op := ctx.GetString(handlers.CtxOperationName); op != "" {
			logAttrs = append(logAttrs, "operation_name", op)
		}

		log.InfoContext(ctx.Request.Context(), "http_request", logAttrs...)
	}
}

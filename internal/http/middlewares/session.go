package middlewares

import (
	"net"

	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/graph"
	"github.com/gin-gonic/gin"
)

// Session resolves the Authorization header into the request's session.
// It never rejects: a missing or invalid token leaves the caller anonymous
// and operations that need an identity fail on their own.
func Session(builder *authctx.Builder) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := builder.FromHeader(c.GetHeader("Authorization"))

		if id, ok := authctx.IdentityOf(s); ok {
			c.Set(CtxUserID, id.ID)
		}

		ctx := authctx.WithSession(c.Request.Context(), s)
		ctx = graph.WithClientIP(ctx, ClientIP(c))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func ClientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}

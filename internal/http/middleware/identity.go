package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID is set by the auth proxy in front of this service.
	HeaderUserID = "X-User-ID"
	CtxKeyUserID = "user_id"
)

// Identity lifts the upstream-authenticated user id into the gin context.
// Endpoints that need an actor check CurrentUserID and reject when empty.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			c.Set(CtxKeyUserID, uid)
		}
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) string {
	if v, ok := c.Get(CtxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

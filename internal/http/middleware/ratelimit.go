package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window counter per client IP, backed by redis so the
// limit holds across instances. Redis being down fails open.
func RateLimit(rdb *redis.Client, perMinute int, l *slog.Logger) gin.HandlerFunc {
	if perMinute < 1 {
		perMinute = 60
	}

	return func(c *gin.Context) {
		window := time.Now().Unix() / 60
		key := "rl:" + c.ClientIP() + ":" + strconv.FormatInt(window, 10)

		n, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			l.WarnContext(c.Request.Context(), "rate limiter unavailable", "err", err)
			c.Next()
			return
		}
		if n == 1 {
			rdb.Expire(c.Request.Context(), key, 2*time.Minute)
		}

		if n > int64(perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests.",
				"request_id": GetRequestID(c),
			})
			return
		}

		c.Next()
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControlMiddleware marks anonymous GET responses as publicly cacheable.
// Authenticated responses are kept private.
func CacheControlMiddleware(maxAge time.Duration) gin.HandlerFunc {
	value := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	return func(c *gin.Context) {
		if c.Request.Method == "GET" && c.GetString(ctxUserID) == "" {
			c.Header("Cache-Control", value)
		} else {
			c.Header("Cache-Control", "private, no-store")
		}
		c.Next()
	}
}

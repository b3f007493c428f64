package middleware

import (
	"time"

	"urbansetu/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxRequestID    = "request_id"
	headerRequestID = "X-Request-ID"
)

// RequestTracingMiddleware reuses a well-formed inbound X-Request-ID or mints one.
func RequestTracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		c.Set(ctxRequestID, requestID)
		c.Header(headerRequestID, requestID)
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := utils.Info()
		switch {
		case status >= 500:
			event = utils.Error()
		case status >= 400:
			event = utils.Warn()
		}
		event.
			Str("request_id", c.GetString(ctxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user_id", c.GetString(ctxUserID)).
			Msg("request")
	}
}

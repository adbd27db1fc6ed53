package middleware

import (
	"time"

	"github.com/RayenLT/files/pkg/logger"
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs all incoming requests with timing
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// Escalate the level for client and server errors
		event := logger.Log.Info()
		if status >= 400 {
			event = logger.Log.Warn()
		}
		if status >= 500 {
			event = logger.Log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", rawQuery).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Str("request_id", c.GetString(RequestIDKey)).
			Int("body_size", c.Writer.Size()).
			Msg("request")
	}
}

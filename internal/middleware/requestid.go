package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "requestId"

	requestIDHeader = "X-Request-ID"
)

// RequestID tags every request with a unique id, reusing one supplied by an
// upstream proxy. The id is echoed in the response headers and picked up by
// the request logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

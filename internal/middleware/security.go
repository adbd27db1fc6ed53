package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds various security headers to the response
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		// MIME type sniffing protection
		c.Header("X-Content-Type-Options", "nosniff")

		// Clickjacking protection
		c.Header("X-Frame-Options", "DENY")

		// XSS protection (for older browsers, modern ones use CSP)
		c.Header("X-XSS-Protection", "1; mode=block")

		// Referrer Policy
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

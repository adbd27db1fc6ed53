package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/RayenLT/files/pkg/errors"
	"github.com/RayenLT/files/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandlerMiddleware handles errors and panics
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stack).
					Msg("Panic recovered")

				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal Server Error",
				})
				c.Abort()
			}
		}()

		c.Next()

		// Handle errors attached to the context
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			if appErr, ok := err.(*errors.AppError); ok {
				c.JSON(appErr.Code, gin.H{
					"error": appErr.Message,
				})
				return
			}

			logger.Error().Err(err).Msg("Unhandled request error")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		}
	}
}

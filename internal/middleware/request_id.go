package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDContextKey is the gin context key under which the request id
// is stored.
const RequestIDContextKey = "request_id"

// RequestID assigns every request an id, taken from the X-Request-ID
// header when present, and echoes it back in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDContextKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

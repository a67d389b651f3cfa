// api/middleware/request_id.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID stamps every request with an id, reusing the caller's when given.
// Handlers and the error middleware can pull it from the context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestId", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request correlation ID.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware tags every request with a correlation ID, reusing the one
// supplied by the caller when present.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the correlation ID for the current request, or "" when
// the middleware did not run.
func Value(c *gin.Context) string {
	v, _ := c.Get(contextKey)
	id, _ := v.(string)
	return id
}

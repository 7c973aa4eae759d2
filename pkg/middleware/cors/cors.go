package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	maxAge       = "600"
)

// New builds a CORS middleware from the configured origin allowlist. An
// empty list allows every origin. Preflight requests short-circuit with
// 204 before reaching the router.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[normalize(o)] = struct{}{}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin == "" && len(allowed) == 0:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && originAllowed(allowed, origin):
			h.Set("Access-Control-Allow-Origin", origin)
		}
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Max-Age", maxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(allowed map[string]struct{}, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[normalize(origin)]
	return ok
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(origin, "/"))
}

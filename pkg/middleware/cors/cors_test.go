package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAllowsConfiguredOrigin(t *testing.T) {
	r := newRouter([]string{"https://portal.example.edu.ph/"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://portal.example.edu.ph")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://portal.example.edu.ph", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRejectsUnknownOrigin(t *testing.T) {
	r := newRouter([]string{"https://portal.example.edu.ph"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEmptyAllowlistAllowsAll(t *testing.T) {
	r := newRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://anywhere.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	r := newRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://portal.example.edu.ph")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

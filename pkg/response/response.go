package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/models"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
)

// Envelope is the common response contract. Every endpoint answers with
// {"success": true, ...} or {"success": false, "error": "..."}.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	Code       string             `json:"code,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Success: true, Data: data, Pagination: pagination})
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, nil)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends a failure response converting the error to the envelope.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Success: false, Error: appErr.Message, Code: appErr.Code})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

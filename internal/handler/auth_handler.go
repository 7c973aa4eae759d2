package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nlsantiago/sis-api/internal/models"
	"github.com/nlsantiago/sis-api/internal/service"
	appErrors "github.com/nlsantiago/sis-api/pkg/errors"
	"github.com/nlsantiago/sis-api/pkg/response"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate a user
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IP = c.ClientIP()

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Verify godoc
// @Summary Verify an access token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	token := tokenFromHeader(c)
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	info, err := h.auth.Verify(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, info)
}

func tokenFromHeader(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) {
		return header[len(prefix):]
	}
	return ""
}

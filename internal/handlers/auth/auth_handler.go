// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"subpass-service/internal/domain/auth"
	"subpass-service/internal/middleware"
	"subpass-service/internal/pkg/response"
	authservice "subpass-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *authservice.AuthService
}

func NewAuthHandler(authService *authservice.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// CreateSession issues an access token for a wallet address
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req auth.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	result, err := h.authService.CreateSession(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "session created", result)
}

// AdminLogin issues an admin session
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req auth.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	result, err := h.authService.AdminLogin(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "admin session created", result)
}

// Refresh exchanges a refresh token for a new session
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "session refreshed", result)
}

// ListSessions lists the caller's live sessions
func (h *AuthHandler) ListSessions(c *gin.Context) {
	address := middleware.MustGetAddress(c)

	result, err := h.authService.Sessions(c.Request.Context(), address)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "sessions retrieved", result)
}

// Logout revokes the current session
func (h *AuthHandler) Logout(c *gin.Context) {
	address := middleware.MustGetAddress(c)
	jti := middleware.MustGetJTI(c)

	if err := h.authService.Logout(c.Request.Context(), address, jti); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "logged out", nil)
}

// LogoutAll revokes every session of the caller
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	address := middleware.MustGetAddress(c)

	if err := h.authService.LogoutAll(c.Request.Context(), address); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "all sessions revoked", nil)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"media-site-service/logging"
	"media-site-service/middleware"
	"media-site-service/services"
	"media-site-service/utils"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

type AdminHandler struct {
	Sessions     *services.SessionStore
	Visitors     *services.VisitorLog
	Credential   *utils.Credential
	LoginLimiter *middleware.RateLimiter
}

// Login exchanges the admin credential for a session token. A successful
// login clears the caller's failed-attempt count.
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Username and password are required")
		return
	}

	ip := c.ClientIP()
	token, err := h.Sessions.Login(h.Credential, req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		logging.Warn().Str("ip", ip).Msg("Failed admin login")
		utils.UnauthorizedResponse(c, "Invalid credentials")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create session")
		utils.InternalErrorResponse(c, "Failed to create session")
		return
	}

	if h.LoginLimiter != nil {
		h.LoginLimiter.Reset(ip)
	}
	logging.Info().Str("ip", ip).Msg("Admin logged in")

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		Message: "Login successful",
	})
}

func (h *AdminHandler) Analytics(c *gin.Context) {
	utils.SuccessResponse(c, h.Visitors.GetAnalytics())
}

// Logout always succeeds; a presented token is revoked if live.
func (h *AdminHandler) Logout(c *gin.Context) {
	if token := middleware.BearerToken(c); token != "" {
		h.Sessions.DeleteSession(token)
	}
	utils.SuccessMessageResponse(c, "Logged out successfully", nil)
}

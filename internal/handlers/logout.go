package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/backend/internal/services"
)

type LogoutHandler struct {
	authService services.AuthService
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func NewLogoutHandler(authService services.AuthService) *LogoutHandler {
	return &LogoutHandler{authService: authService}
}

// Logout revokes the refresh token. Revocation of an unknown token still
// reports success so logout is idempotent from the client's view.
func (h *LogoutHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	_ = h.authService.RevokeToken(c.Request.Context(), req.RefreshToken)

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"taskmanager/backend/internal/services"
)

type AuthHandler struct {
	db          *gorm.DB
	authService services.AuthService
	expiresIn   int64
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	TokenType    string               `json:"token_type"`
	ExpiresIn    int64                `json:"expires_in"`
	User         *UserProfileResponse `json:"user"`
}

type UserProfileResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	EmailNotifications bool       `json:"email_notifications"`
	LastLoginAt        *time.Time `json:"last_login_at"`
}

func NewAuthHandler(db *gorm.DB, authService services.AuthService, accessTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{db: db, authService: authService, expiresIn: int64(accessTokenTTL.Seconds())}
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "Invalid email or password",
		})
		return
	}

	accessToken, refreshToken, err := h.authService.GenerateToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "token_generation_failed",
			"message": "Failed to generate authentication tokens",
		})
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	_ = h.db.WithContext(c.Request.Context()).Save(user).Error

	response := LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    h.expiresIn,
		User: &UserProfileResponse{
			ID:                 user.ID.String(),
			Name:               user.Name,
			Email:              user.Email,
			EmailNotifications: user.EmailNotifications,
			LastLoginAt:        user.LastLoginAt,
		},
	}

	c.JSON(http.StatusOK, response)
}

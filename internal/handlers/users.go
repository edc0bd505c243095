package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/backend/internal/middleware"
	"taskmanager/backend/internal/repositories"
)

type UserHandler struct {
	users *repositories.UserRepository
}

func NewUserHandler(users *repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                  user.ID,
		"name":                user.Name,
		"email":               user.Email,
		"email_notifications": user.EmailNotifications,
		"created_at":          user.CreatedAt,
		"updated_at":          user.UpdatedAt,
	})
}

type NotificationsRequest struct {
	EmailNotifications *bool `json:"emailNotifications" binding:"required"`
}

// UpdateNotifications flips the caller's reminder opt-in. Opted-out users
// are skipped by every reminder cadence.
func (h *UserHandler) UpdateNotifications(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req NotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emailNotifications field is required"})
		return
	}

	if err := h.users.SetEmailNotifications(c.Request.Context(), userID, *req.EmailNotifications); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "Notification settings updated",
		"emailNotifications": *req.EmailNotifications,
	})
}

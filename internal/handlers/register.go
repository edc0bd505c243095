package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskmanager/backend/internal/services"
)

type RegisterHandler struct {
	registerService services.RegisterService
	logger          *logrus.Logger
}

func NewRegisterHandler(registerService services.RegisterService, logger *logrus.Logger) *RegisterHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RegisterHandler{registerService: registerService, logger: logger}
}

type RegistrationResponse struct {
	Message string                 `json:"message"`
	User    RegistrationUserDetail `json:"user"`
}

type RegistrationUserDetail struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *RegisterHandler) Registration(c *gin.Context) {
	var req services.RegistrationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": "name is required",
		})
		return
	}

	user, err := h.registerService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Registration failed",
				"details": "An account with this email already exists",
			})
			return
		}
		h.logger.WithError(err).Error("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Registration failed",
			"details": "An unexpected error occurred. Please try again later.",
		})
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Message: "Your account has been created successfully.",
		User: RegistrationUserDetail{
			ID:    user.ID.String(),
			Name:  user.Name,
			Email: user.Email,
		},
	})
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"taskmanager/backend/internal/middleware"
	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repositories"
	"taskmanager/backend/internal/services"
)

type ReminderDispatcher interface {
	Send(ctx context.Context, recipient string, task models.Task) error
}

// ReminderHandler exposes a manual send endpoint so a user can verify
// their delivery setup without waiting for the schedule.
type ReminderHandler struct {
	taskService services.TaskService
	users       *repositories.UserRepository
	dispatcher  ReminderDispatcher
	logger      *logrus.Logger
}

func NewReminderHandler(taskService services.TaskService, users *repositories.UserRepository, dispatcher ReminderDispatcher, logger *logrus.Logger) *ReminderHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReminderHandler{taskService: taskService, users: users, dispatcher: dispatcher, logger: logger}
}

func (h *ReminderHandler) SendTestReminder(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID := uuid.FromStringOrNil(c.Param("taskId"))
	task, err := h.taskService.GetTask(c.Request.Context(), taskID, userID)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	if err := h.dispatcher.Send(c.Request.Context(), user.Email, *task); err != nil {
		h.logger.WithError(err).WithField("task_id", task.ID).Error("test reminder delivery failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "reminder delivery failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Test reminder sent",
		"sent_to": user.Email,
	})
}

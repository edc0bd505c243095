package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskmanager/backend/internal/ai"
	"taskmanager/backend/internal/middleware"
	"taskmanager/backend/internal/services"
)

type AIHandler struct {
	classifier  *ai.Classifier
	assistant   *ai.Assistant
	taskService services.TaskService
	logger      *logrus.Logger
}

func NewAIHandler(classifier *ai.Classifier, assistant *ai.Assistant, taskService services.TaskService, logger *logrus.Logger) *AIHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AIHandler{classifier: classifier, assistant: assistant, taskService: taskService, logger: logger}
}

type AnalyzeRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Analyze proxies the task text to the classifier model and returns
// normalized category and priority suggestions.
func (h *AIHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analysis, err := h.classifier.Analyze(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		h.logger.WithError(err).Warn("classifier request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error analyzing task",
			"fallback": gin.H{
				"category": ai.FallbackCategory,
				"priority": ai.FallbackPriority,
			},
		})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

type AssistantRequest struct {
	Question string `json:"question" binding:"required"`
}

// Assistant answers a free-form question over the caller's task list.
func (h *AIHandler) Assistant(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	answer, err := h.assistant.Answer(c.Request.Context(), tasks, req.Question)
	if err != nil {
		if errors.Is(err, ai.ErrAssistantNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not configured"})
			return
		}
		h.logger.WithError(err).Warn("assistant request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

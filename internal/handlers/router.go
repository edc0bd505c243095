package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskmanager/backend/internal/ai"
	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/middleware"
	"taskmanager/backend/internal/monitoring"
	"taskmanager/backend/internal/repositories"
	"taskmanager/backend/internal/services"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Config      *config.Config
	DB          *gorm.DB
	TaskService services.TaskService
	AuthService services.AuthService
	Register    services.RegisterService
	Users       *repositories.UserRepository
	Classifier  *ai.Classifier
	Assistant   *ai.Assistant
	Dispatcher  ReminderDispatcher
	Metrics     *monitoring.Metrics
	Health      *monitoring.HealthChecker
	Logger      *logrus.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.Use(deps.Metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{deps.Config.Mail.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if deps.Config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(deps.Config.RateLimit)
		router.Use(limiter.Middleware())
	}

	authHandler := NewAuthHandler(deps.DB, deps.AuthService, deps.Config.Auth.AccessTokenTTL)
	registerHandler := NewRegisterHandler(deps.Register, deps.Logger)
	refreshHandler := NewRefreshHandler(deps.AuthService)
	logoutHandler := NewLogoutHandler(deps.AuthService)
	taskHandler := NewTaskHandler(deps.TaskService)
	userHandler := NewUserHandler(deps.Users)
	aiHandler := NewAIHandler(deps.Classifier, deps.Assistant, deps.TaskService, deps.Logger)
	reminderHandler := NewReminderHandler(deps.TaskService, deps.Users, deps.Dispatcher, deps.Logger)

	router.GET("/health", deps.Health.Handler(deps.Metrics.StartTime))
	router.GET("/metrics", deps.Metrics.Handler())

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", registerHandler.Registration)
		auth.POST("/login", authHandler.Token)
		auth.POST("/refresh", refreshHandler.Refresh)
		auth.POST("/logout", logoutHandler.Logout)
	}

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(deps.Config.Auth.JWTSecret))
	{
		api.GET("/tasks", taskHandler.GetTasks)
		api.POST("/tasks", taskHandler.CreateTask)
		api.GET("/tasks/:id", taskHandler.GetTaskByID)
		api.PUT("/tasks/:id", taskHandler.UpdateTask)
		api.DELETE("/tasks/:id", taskHandler.DeleteTask)

		api.GET("/users/me", userHandler.GetProfile)
		api.PATCH("/users/notifications", userHandler.UpdateNotifications)

		api.POST("/ai/analyze", aiHandler.Analyze)
		api.POST("/ai/assistant", aiHandler.Assistant)

		api.POST("/test-reminder/:taskId", reminderHandler.SendTestReminder)
	}

	return router
}

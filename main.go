package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"taskmanager/backend/internal/ai"
	"taskmanager/backend/internal/cache"
	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/database"
	"taskmanager/backend/internal/handlers"
	"taskmanager/backend/internal/mailer"
	"taskmanager/backend/internal/monitoring"
	"taskmanager/backend/internal/repositories"
	"taskmanager/backend/internal/scheduler"
	"taskmanager/backend/internal/services"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	taskCache, err := cache.NewTaskCache(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, task list caching disabled")
		taskCache = nil
	} else {
		defer taskCache.Close()
	}

	taskRepo := repositories.NewTaskRepository(db)
	userRepo := repositories.NewUserRepository(db)
	taskService := services.NewTaskService(taskRepo, taskCache, logger)
	authService := services.NewAuthService(db, cfg.Auth)
	registerService := services.NewRegisterService(db)

	var channels []mailer.Channel
	if cfg.Mail.SMTPPassword != "" {
		channels = append(channels, mailer.NewSMTPChannel(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUser, cfg.Mail.SMTPPassword))
	}
	if cfg.Mail.SendGridAPIKey != "" {
		channels = append(channels, mailer.NewSendGridChannel(cfg.Mail.SendGridAPIKey))
	}
	dispatcher := mailer.NewDispatcher(cfg.Mail.SenderEmail, cfg.Mail.FrontendURL, cfg.Scheduler.DispatchTimeout, logger, channels...)

	if cfg.Scheduler.Enabled {
		reminderStore := services.NewReminderStore(taskRepo, taskCache, logger)
		sched := scheduler.New(reminderStore, dispatcher, cfg.Scheduler, logger)
		if err := sched.Start(); err != nil {
			logger.WithError(err).Fatal("failed to start reminder scheduler")
		}
		defer sched.Stop()
	} else {
		logger.Warn("reminder scheduler is disabled")
	}

	classifier := ai.NewClassifier(cfg.AI.ClassifierURL, cfg.AI.Timeout)
	assistant := ai.NewAssistant(cfg.AI.OpenAIAPIKey, cfg.AI.Timeout)

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker()
	health.Register("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if taskCache != nil {
		health.Register("redis", taskCache.Health)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:      cfg,
		DB:          db,
		TaskService: taskService,
		AuthService: authService,
		Register:    registerService,
		Users:       userRepo,
		Classifier:  classifier,
		Assistant:   assistant,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Health:      health,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("forced shutdown")
	}
}

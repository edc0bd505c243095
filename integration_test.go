package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskmanager/backend/internal/ai"
	"taskmanager/backend/internal/cache"
	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/handlers"
	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/monitoring"
	"taskmanager/backend/internal/repositories"
	"taskmanager/backend/internal/services"
)

type recordingDispatcher struct {
	sent []string
}

func (d *recordingDispatcher) Send(ctx context.Context, recipient string, task models.Task) error {
	d.sent = append(d.sent, recipient)
	return nil
}

func newTestApp(t *testing.T) (*gin.Engine, *recordingDispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.Token{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	taskCache := cache.NewTaskCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { taskCache.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "development"},
		Auth: config.AuthConfig{
			JWTSecret:       "integration-secret",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Mail: config.MailConfig{FrontendURL: "http://localhost:5173"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	taskRepo := repositories.NewTaskRepository(db)
	userRepo := repositories.NewUserRepository(db)
	dispatcher := &recordingDispatcher{}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:      cfg,
		DB:          db,
		TaskService: services.NewTaskService(taskRepo, taskCache, log),
		AuthService: services.NewAuthService(db, cfg.Auth),
		Register:    services.NewRegisterService(db),
		Users:       userRepo,
		Classifier:  ai.NewClassifier("http://127.0.0.1:0", time.Second),
		Assistant:   ai.NewAssistant("", time.Second),
		Dispatcher:  dispatcher,
		Metrics:     monitoring.NewMetrics(),
		Health:      monitoring.NewHealthChecker(),
		Logger:      log,
	})
	return router, dispatcher
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/auth/register", "", map[string]string{
		"name":     "Integration User",
		"email":    "it@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected %d, got %d (%s)", http.StatusCreated, w.Code, w.Body.String())
	}

	w = doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"email":    "it@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected non-empty access token")
	}
	return resp.AccessToken
}

func TestTaskLifecycle(t *testing.T) {
	router, _ := newTestApp(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, "POST", "/api/tasks", token, map[string]interface{}{
		"title":    "Pay electricity bill",
		"category": "Finance & Bills",
		"dueDate":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected %d, got %d (%s)", http.StatusCreated, w.Code, w.Body.String())
	}
	var created models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode task: %v", err)
	}
	if created.Priority != models.DefaultPriority {
		t.Errorf("expected default priority, got %q", created.Priority)
	}

	w = doJSON(t, router, "GET", "/api/tasks", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected %d, got %d", http.StatusOK, w.Code)
	}
	var listed []models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 task, got %d", len(listed))
	}

	w = doJSON(t, router, "PUT", "/api/tasks/"+created.ID.String(), token, map[string]interface{}{
		"completed": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}

	w = doJSON(t, router, "DELETE", "/api/tasks/"+created.ID.String(), token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected %d, got %d", http.StatusNoContent, w.Code)
	}

	w = doJSON(t, router, "GET", "/api/tasks/"+created.ID.String(), token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestTasksRequireAuthentication(t *testing.T) {
	router, _ := newTestApp(t)

	w := doJSON(t, router, "GET", "/api/tasks", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestNotificationPreferenceToggle(t *testing.T) {
	router, _ := newTestApp(t)
	token := registerAndLogin(t, router)

	disabled := false
	w := doJSON(t, router, "PATCH", "/api/users/notifications", token, map[string]interface{}{
		"emailNotifications": disabled,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}

	w = doJSON(t, router, "GET", "/api/users/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected %d, got %d", http.StatusOK, w.Code)
	}
	var profile struct {
		EmailNotifications bool `json:"email_notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile.EmailNotifications {
		t.Error("expected notifications to be disabled")
	}
}

func TestManualReminderDelivery(t *testing.T) {
	router, dispatcher := newTestApp(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, "POST", "/api/tasks", token, map[string]interface{}{
		"title": "Dentist appointment",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected %d, got %d", http.StatusCreated, w.Code)
	}
	var created models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode task: %v", err)
	}

	w = doJSON(t, router, "POST", "/api/test-reminder/"+created.ID.String(), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}
	if len(dispatcher.sent) != 1 || dispatcher.sent[0] != "it@example.com" {
		t.Errorf("expected one delivery to it@example.com, got %v", dispatcher.sent)
	}
}

func TestRefreshAndLogoutFlow(t *testing.T) {
	router, _ := newTestApp(t)
	registerAndLogin(t, router)

	w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"email":    "it@example.com",
		"password": "password123",
	})
	var login struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("failed to decode login: %v", err)
	}

	w = doJSON(t, router, "POST", "/api/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}
	var refreshed struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("failed to decode refresh: %v", err)
	}

	w = doJSON(t, router, "POST", "/api/auth/logout", "", map[string]string{
		"refresh_token": refreshed.RefreshToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected %d, got %d", http.StatusOK, w.Code)
	}

	// Revoked token can no longer be exchanged.
	w = doJSON(t, router, "POST", "/api/auth/refresh", "", map[string]string{
		"refresh_token": refreshed.RefreshToken,
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected %d after logout, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestApp(t)

	w := doJSON(t, router, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, w.Code)
	}
}

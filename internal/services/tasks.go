package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"taskmanager/backend/internal/cache"
	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repositories"
)

type CreateTaskInput struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"dueDate"`
	ReminderTime *time.Time `json:"reminderTime"`
}

// OptionalTime distinguishes a field absent from the request body from an
// explicit JSON null. A null clears the stored timestamp.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// UpdateTaskInput carries partial updates. Nil (or unset) fields are left
// untouched.
type UpdateTaskInput struct {
	Title        *string      `json:"title"`
	Description  *string      `json:"description"`
	Category     *string      `json:"category"`
	Priority     *string      `json:"priority"`
	DueDate      OptionalTime `json:"dueDate"`
	ReminderTime OptionalTime `json:"reminderTime"`
	Completed    *bool        `json:"completed"`
	Reminded     *bool        `json:"reminded"`
}

type TaskService interface {
	CreateTask(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*models.Task, error)
	ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	GetTask(ctx context.Context, id, userID uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, id, userID uuid.UUID, input UpdateTaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, id, userID uuid.UUID) error
}

// TaskServiceImpl serves task CRUD backed by the repository with a per-user
// read-through list cache. The cache is optional; a nil cache disables it.
type TaskServiceImpl struct {
	repo   *repositories.TaskRepository
	cache  *cache.TaskCache
	logger *logrus.Logger
}

func NewTaskService(repo *repositories.TaskRepository, taskCache *cache.TaskCache, logger *logrus.Logger) *TaskServiceImpl {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TaskServiceImpl{repo: repo, cache: taskCache, logger: logger}
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*models.Task, error) {
	task := models.Task{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Priority:     input.Priority,
		DueDate:      input.DueDate,
		ReminderTime: input.ReminderTime,
	}
	if task.Category == "" {
		task.Category = models.DefaultCategory
	}
	if task.Priority == "" {
		task.Priority = models.DefaultPriority
	}

	if err := s.repo.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return &task, nil
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	if s.cache != nil {
		tasks, err := s.cache.GetTaskList(ctx, userID)
		if err == nil {
			return tasks, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithError(err).Warn("task list cache read failed")
		}
	}

	tasks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetTaskList(ctx, userID, tasks); err != nil {
			s.logger.WithError(err).Warn("task list cache write failed")
		}
	}
	return tasks, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, id, userID uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, repositories.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, id, userID uuid.UUID, input UpdateTaskInput) (*models.Task, error) {
	fields := map[string]interface{}{}
	if input.Title != nil {
		fields["title"] = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Category != nil {
		fields["category"] = *input.Category
	}
	if input.Priority != nil {
		fields["priority"] = *input.Priority
	}
	if input.DueDate.Set {
		fields["due_date"] = input.DueDate.Value
	}
	if input.ReminderTime.Set {
		fields["reminder_time"] = input.ReminderTime.Value
	}
	if input.Completed != nil {
		fields["completed"] = *input.Completed
	}
	// Rescheduling re-arms the reminder for the new time; an explicit
	// reminded value in the request wins over the re-arm.
	if input.DueDate.Set || input.ReminderTime.Set {
		fields["reminded"] = false
	}
	if input.Reminded != nil {
		fields["reminded"] = *input.Reminded
	}
	if len(fields) == 0 {
		return s.GetTask(ctx, id, userID)
	}

	task, err := s.repo.Update(ctx, id, userID, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *TaskServiceImpl) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.WithError(err).Warn("task list cache invalidation failed")
	}
}

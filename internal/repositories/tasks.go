package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskmanager/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository wraps task persistence. The reminder scheduler depends only
// on the four operations below, so tests can substitute an in-memory fake.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindDueWithin returns incomplete, not-yet-reminded tasks whose reminder time
// or due date falls inside [from, to] (inclusive), restricted to owners that
// opted into email notifications. The owning user is loaded on each task.
func (r *TaskRepository) FindDueWithin(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Joins("User").
		Where("tasks.completed = ? AND tasks.reminded = ?", false, false).
		Where(`"User".email_notifications = ?`, true).
		Where(
			r.db.Where("tasks.reminder_time >= ? AND tasks.reminder_time <= ?", from, to).
				Or("tasks.due_date >= ? AND tasks.due_date <= ?", from, to),
		).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	return tasks, nil
}

// FindDueToday returns the daily-digest candidates: same filters as
// FindDueWithin over [start of day, start of next day).
func (r *TaskRepository) FindDueToday(ctx context.Context, day time.Time) ([]models.Task, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Joins("User").
		Where("tasks.completed = ? AND tasks.reminded = ?", false, false).
		Where(`"User".email_notifications = ?`, true).
		Where(
			r.db.Where("tasks.reminder_time >= ? AND tasks.reminder_time < ?", start, end).
				Or("tasks.due_date >= ? AND tasks.due_date < ?", start, end),
		).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("query today's tasks: %w", err)
	}
	return tasks, nil
}

// MarkReminded flips the reminded flag, conditioned on it still being false.
// The returned bool reports whether this caller won the update; a concurrent
// cadence that already marked the task sees false instead of a second write.
func (r *TaskRepository) MarkReminded(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND reminded = ?", id, false).
		Update("reminded", true)
	if result.Error != nil {
		return false, fmt.Errorf("mark task %s reminded: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ResetReminded clears the reminded flag on all incomplete tasks so the next
// day's windows fire again. Completed tasks keep their flag forever.
func (r *TaskRepository) ResetReminded(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("completed = ? AND reminded = ?", false, true).
		Update("reminded", false)
	if result.Error != nil {
		return 0, fmt.Errorf("reset reminded flags: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CRUD surface used by the HTTP handlers.

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Joins("User").First(&task, "tasks.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// Update applies the given column set to a task owned by userID.
func (r *TaskRepository) Update(ctx context.Context, id, userID uuid.UUID, fields map[string]interface{}) (*models.Task, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("update task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrTaskNotFound
	}

	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Task{})
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

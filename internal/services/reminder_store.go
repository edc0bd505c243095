package services

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"taskmanager/backend/internal/cache"
	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repositories"
)

// ReminderStore is the task store handed to the reminder scheduler. It
// delegates to the repository and keeps the cached task lists in step:
// without this, a user's list could show reminded=false for a full cache
// TTL after a send. The cache is optional; a nil cache disables it.
type ReminderStore struct {
	repo   *repositories.TaskRepository
	cache  *cache.TaskCache
	logger *logrus.Logger
}

func NewReminderStore(repo *repositories.TaskRepository, taskCache *cache.TaskCache, logger *logrus.Logger) *ReminderStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReminderStore{repo: repo, cache: taskCache, logger: logger}
}

func (s *ReminderStore) FindDueWithin(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	return s.repo.FindDueWithin(ctx, from, to)
}

func (s *ReminderStore) FindDueToday(ctx context.Context, day time.Time) ([]models.Task, error) {
	return s.repo.FindDueToday(ctx, day)
}

func (s *ReminderStore) MarkReminded(ctx context.Context, id uuid.UUID) (bool, error) {
	won, err := s.repo.MarkReminded(ctx, id)
	if err != nil || !won || s.cache == nil {
		return won, err
	}

	task, gerr := s.repo.GetByID(ctx, id)
	if gerr != nil {
		s.logger.WithError(gerr).WithField("task_id", id).Warn("cache invalidation skipped, owner lookup failed")
		return won, nil
	}
	if cerr := s.cache.InvalidateUser(ctx, task.UserID); cerr != nil {
		s.logger.WithError(cerr).Warn("task list cache invalidation failed")
	}
	return won, nil
}

func (s *ReminderStore) ResetReminded(ctx context.Context) (int64, error) {
	reset, err := s.repo.ResetReminded(ctx)
	if err != nil {
		return reset, err
	}
	if reset > 0 && s.cache != nil {
		if cerr := s.cache.InvalidateAll(ctx); cerr != nil {
			s.logger.WithError(cerr).Warn("task list cache invalidation failed")
		}
	}
	return reset, nil
}

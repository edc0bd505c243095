package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskmanager/backend/internal/cache"
	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repositories"
)

func newReminderStore(t *testing.T) (*ReminderStore, *cache.TaskCache, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	taskCache := cache.NewTaskCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { taskCache.Close() })

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return NewReminderStore(repositories.NewTaskRepository(db), taskCache, log), taskCache, db
}

func seedDueTask(t *testing.T, db *gorm.DB, userID uuid.UUID) models.Task {
	t.Helper()
	due := time.Now().Add(2 * time.Minute)
	task := models.Task{
		ID:       uuid.Must(uuid.NewV4()),
		UserID:   userID,
		Title:    "Call the dentist",
		Category: models.DefaultCategory,
		Priority: models.DefaultPriority,
		DueDate:  &due,
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func TestMarkRemindedInvalidatesOwnerCache(t *testing.T) {
	store, taskCache, db := newReminderStore(t)
	userID := seedUser(t, db)
	task := seedDueTask(t, db, userID)
	ctx := context.Background()

	require.NoError(t, taskCache.SetTaskList(ctx, userID, []models.Task{task}))

	won, err := store.MarkReminded(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, won)

	_, err = taskCache.GetTaskList(ctx, userID)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMarkRemindedLostRaceLeavesCache(t *testing.T) {
	store, taskCache, db := newReminderStore(t)
	userID := seedUser(t, db)
	task := seedDueTask(t, db, userID)
	ctx := context.Background()

	won, err := store.MarkReminded(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, taskCache.SetTaskList(ctx, userID, []models.Task{task}))

	won, err = store.MarkReminded(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, won)

	cached, err := taskCache.GetTaskList(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestResetRemindedInvalidatesAllCachedLists(t *testing.T) {
	store, taskCache, db := newReminderStore(t)
	ctx := context.Background()

	first := seedUser(t, db)
	second := seedUser(t, db)
	firstTask := seedDueTask(t, db, first)
	secondTask := seedDueTask(t, db, second)

	won, err := store.MarkReminded(ctx, firstTask.ID)
	require.NoError(t, err)
	require.True(t, won)
	won, err = store.MarkReminded(ctx, secondTask.ID)
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, taskCache.SetTaskList(ctx, first, []models.Task{firstTask}))
	require.NoError(t, taskCache.SetTaskList(ctx, second, []models.Task{secondTask}))

	reset, err := store.ResetReminded(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reset)

	_, err = taskCache.GetTaskList(ctx, first)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = taskCache.GetTaskList(ctx, second)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestReminderStoreWithoutCache(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	store := NewReminderStore(repositories.NewTaskRepository(db), nil, log)

	userID := seedUser(t, db)
	task := seedDueTask(t, db, userID)
	ctx := context.Background()

	won, err := store.MarkReminded(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, won)

	reset, err := store.ResetReminded(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"

	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/models"
)

// ErrCacheMiss is returned when the requested key is absent.
var ErrCacheMiss = errors.New("cache miss")

const taskListTTL = 5 * time.Minute

// TaskCache stores serialized per-user task lists in Redis so repeated
// list requests skip the database. Writes invalidate the owner's entry.
type TaskCache struct {
	client *redis.Client
}

func NewTaskCache(cfg config.RedisConfig) (*TaskCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &TaskCache{client: client}, nil
}

// NewTaskCacheFromClient wraps an existing client, used by tests.
func NewTaskCacheFromClient(client *redis.Client) *TaskCache {
	return &TaskCache{client: client}
}

func taskListKey(userID uuid.UUID) string {
	return "tasks:user:" + userID.String()
}

func (c *TaskCache) GetTaskList(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	data, err := c.client.Get(ctx, taskListKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return tasks, nil
}

func (c *TaskCache) SetTaskList(ctx context.Context, userID uuid.UUID, tasks []models.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	if err := c.client.Set(ctx, taskListKey(userID), data, taskListTTL).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// InvalidateUser drops the cached list for a single user.
func (c *TaskCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, taskListKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached task list. Used after bulk flag updates
// that touch an unknown set of users.
func (c *TaskCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "tasks:user:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache invalidation failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	return nil
}

func (c *TaskCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *TaskCache) Close() error {
	return c.client.Close()
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TaskStore is the slice of task persistence the scheduler depends on.
// Production wires a cache-aware wrapper around the task repository;
// tests use an in-memory fake.
type TaskStore interface {
	FindDueWithin(ctx context.Context, from, to time.Time) ([]models.Task, error)
	FindDueToday(ctx context.Context, day time.Time) ([]models.Task, error)
	MarkReminded(ctx context.Context, id uuid.UUID) (bool, error)
	ResetReminded(ctx context.Context) (int64, error)
}

// Dispatcher delivers one rendered notification to a recipient.
type Dispatcher interface {
	Send(ctx context.Context, recipient string, task models.Task) error
}

// Scheduler drives the three reminder cadences: a minute-level proximity
// check, a once-daily digest, and a nightly reset of the reminded flags.
// Each cadence runs behind its own error boundary; a failing tick is logged
// and the next tick proceeds normally.
type Scheduler struct {
	store      TaskStore
	dispatcher Dispatcher
	logger     *logrus.Logger
	cron       *cron.Cron

	interval   time.Duration
	window     time.Duration
	digestTime string
	location   *time.Location

	// now is swapped out in tests to pin the clock.
	now func() time.Time
}

func New(store TaskStore, dispatcher Dispatcher, cfg config.SchedulerConfig, logger *logrus.Logger) *Scheduler {
	loc := cfg.Timezone
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		cron:       cron.New(cron.WithLocation(loc)),
		interval:   cfg.ProximityInterval,
		window:     cfg.ProximityWindow,
		digestTime: cfg.DigestTime,
		location:   loc,
		now:        func() time.Time { return time.Now().In(loc) },
	}
}

// Start registers the three cadences and starts the cron runner. The cadences
// are independent: the digest firing late or failing never delays the
// proximity ticks.
func (s *Scheduler) Start() error {
	hour, minute, err := config.ParseClock(s.digestTime)
	if err != nil {
		return fmt.Errorf("invalid digest time: %w", err)
	}

	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), func() {
		s.guard("proximity", s.RunProximityCheck)
	}); err != nil {
		return fmt.Errorf("schedule proximity check: %w", err)
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), func() {
		s.guard("digest", s.RunDailyDigest)
	}); err != nil {
		return fmt.Errorf("schedule daily digest: %w", err)
	}

	if _, err := s.cron.AddFunc("0 0 * * *", func() {
		s.guard("reset", s.RunNightlyReset)
	}); err != nil {
		return fmt.Errorf("schedule nightly reset: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"proximity_interval": s.interval.String(),
		"proximity_window":   s.window.String(),
		"digest_time":        s.digestTime,
	}).Info("reminder scheduler started")
	return nil
}

// Stop halts the cron runner and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reminder scheduler stopped")
}

// guard is the cadence-level error boundary: no tick may crash the process.
func (s *Scheduler) guard(cadence string, tick func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("cadence", cadence).Errorf("tick panicked: %v", r)
		}
	}()
	tick()
}

// RunProximityCheck selects tasks whose reminder time or due date falls
// within the proximity window around now and dispatches a notification for
// each. Per-task failures are isolated: one bad send never aborts the batch.
func (s *Scheduler) RunProximityCheck() {
	now := s.now()
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	tasks, err := s.store.FindDueWithin(ctx, now.Add(-s.window), now.Add(s.window))
	if err != nil {
		s.logger.WithError(err).Error("proximity check: task selection failed")
		return
	}

	for _, task := range tasks {
		// Defensive recheck against drift between the query and this loop;
		// applied to both trigger fields.
		if !s.withinWindow(task, now) {
			s.logger.WithField("task_id", task.ID).Debug("task drifted out of window, skipping")
			continue
		}
		s.processTask(ctx, task)
	}
}

// RunDailyDigest dispatches one notification for every task due today that
// has not already been reminded. No secondary timing recheck: the digest is
// the coarse safety net for windows the proximity cadence missed.
func (s *Scheduler) RunDailyDigest() {
	now := s.now()
	ctx := context.Background()

	tasks, err := s.store.FindDueToday(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("daily digest: task selection failed")
		return
	}

	sent := 0
	for _, task := range tasks {
		if s.processTask(ctx, task) {
			sent++
		}
	}

	if len(tasks) > 0 {
		s.logger.WithFields(logrus.Fields{
			"candidates": len(tasks),
			"sent":       sent,
		}).Info("daily digest completed")
	}
}

// RunNightlyReset clears the reminded flag on incomplete tasks so future
// days' reminders fire again. A failure here is retried naturally by the
// next night's run.
func (s *Scheduler) RunNightlyReset() {
	ctx := context.Background()

	count, err := s.store.ResetReminded(ctx)
	if err != nil {
		s.logger.WithError(err).Error("nightly reset failed")
		return
	}
	s.logger.WithField("tasks_reset", count).Info("reset reminded flags for uncompleted tasks")
}

// processTask dispatches one notification and, only after a confirmed send,
// persists the reminded flag. Returns whether a notification went out.
func (s *Scheduler) processTask(ctx context.Context, task models.Task) bool {
	recipient := task.User.Email
	if recipient == "" {
		s.logger.WithField("task_id", task.ID).Warn("task owner has no email, skipping")
		return false
	}

	if err := s.dispatcher.Send(ctx, recipient, task); err != nil {
		// Flag stays false: the task remains eligible for the next window.
		s.logger.WithFields(logrus.Fields{
			"task_id":   task.ID,
			"recipient": recipient,
		}).WithError(err).Error("reminder dispatch failed")
		return false
	}

	won, err := s.store.MarkReminded(ctx, task.ID)
	if err != nil {
		// The one genuinely bad case: the mail went out but the flag did
		// not stick, so the next tick may send a duplicate.
		s.logger.WithFields(logrus.Fields{
			"task_id":   task.ID,
			"recipient": recipient,
		}).WithError(err).Error("notification sent but reminded flag update failed; duplicate possible")
		return true
	}
	if !won {
		s.logger.WithField("task_id", task.ID).Warn("task was already marked reminded by a concurrent cadence")
		return true
	}

	s.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"recipient": recipient,
	}).Info("reminder sent and task marked")
	return true
}

// withinWindow recomputes the gap between now and the task's trigger fields.
// True when at least one configured field is still inside the window.
func (s *Scheduler) withinWindow(task models.Task, now time.Time) bool {
	if task.ReminderTime == nil && task.DueDate == nil {
		return false
	}
	if task.ReminderTime != nil && absDuration(now.Sub(*task.ReminderTime)) <= s.window {
		return true
	}
	if task.DueDate != nil && absDuration(now.Sub(*task.DueDate)) <= s.window {
		return true
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	tasks      []models.Task
	selectErr  error
	markErr    error
	markLost   bool
	marked     map[uuid.UUID]bool
	resetErr   error
	resetCalls int
}

func newFakeStore(tasks ...models.Task) *fakeStore {
	return &fakeStore{tasks: tasks, marked: make(map[uuid.UUID]bool)}
}

func (f *fakeStore) FindDueWithin(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.pending(), nil
}

func (f *fakeStore) FindDueToday(ctx context.Context, day time.Time) ([]models.Task, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.pending(), nil
}

func (f *fakeStore) pending() []models.Task {
	var out []models.Task
	for _, t := range f.tasks {
		if !f.marked[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeStore) MarkReminded(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.markLost || f.marked[id] {
		return false, nil
	}
	f.marked[id] = true
	return true, nil
}

func (f *fakeStore) ResetReminded(ctx context.Context) (int64, error) {
	f.resetCalls++
	if f.resetErr != nil {
		return 0, f.resetErr
	}
	cleared := int64(len(f.marked))
	f.marked = make(map[uuid.UUID]bool)
	return cleared, nil
}

type fakeDispatcher struct {
	failFor map[uuid.UUID]error
	sent    []uuid.UUID
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{failFor: make(map[uuid.UUID]error)}
}

func (f *fakeDispatcher) Send(ctx context.Context, recipient string, task models.Task) error {
	if err := f.failFor[task.ID]; err != nil {
		return err
	}
	f.sent = append(f.sent, task.ID)
	return nil
}

var testClock = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestScheduler(store TaskStore, dispatcher Dispatcher) *Scheduler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := New(store, dispatcher, config.SchedulerConfig{
		ProximityInterval: time.Minute,
		ProximityWindow:   5 * time.Minute,
		DigestTime:        "09:00",
		Timezone:          time.UTC,
	}, logger)
	s.now = func() time.Time { return testClock }
	return s
}

func taskDueIn(offset time.Duration, owner string) models.Task {
	reminder := testClock.Add(offset)
	return models.Task{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       uuid.Must(uuid.NewV4()),
		Title:        "Water the plants",
		Category:     models.DefaultCategory,
		Priority:     models.DefaultPriority,
		ReminderTime: &reminder,
		User:         models.User{Email: owner, EmailNotifications: true},
	}
}

func TestProximityCheck_SendsAndMarks(t *testing.T) {
	task := taskDueIn(0, "grace@example.com")
	store := newFakeStore(task)
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	s.RunProximityCheck()

	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, task.ID, dispatcher.sent[0])
	assert.True(t, store.marked[task.ID], "successful dispatch must persist reminded=true")
}

func TestProximityCheck_PartialFailureIsolation(t *testing.T) {
	t1 := taskDueIn(-time.Minute, "a@example.com")
	t2 := taskDueIn(0, "b@example.com")
	t3 := taskDueIn(time.Minute, "c@example.com")
	store := newFakeStore(t1, t2, t3)
	dispatcher := newFakeDispatcher()
	dispatcher.failFor[t2.ID] = errors.New("mailbox unavailable")
	s := newTestScheduler(store, dispatcher)

	s.RunProximityCheck()

	assert.True(t, store.marked[t1.ID])
	assert.False(t, store.marked[t2.ID], "failed dispatch must leave the flag untouched")
	assert.True(t, store.marked[t3.ID])
	assert.Len(t, dispatcher.sent, 2)
}

func TestProximityCheck_FailedTaskRetriedNextTick(t *testing.T) {
	task := taskDueIn(0, "grace@example.com")
	store := newFakeStore(task)
	dispatcher := newFakeDispatcher()
	dispatcher.failFor[task.ID] = errors.New("smtp timeout")
	s := newTestScheduler(store, dispatcher)

	s.RunProximityCheck()
	assert.Empty(t, dispatcher.sent)

	// Channel recovers; the still-unmarked task goes out on the next tick.
	delete(dispatcher.failFor, task.ID)
	s.RunProximityCheck()
	require.Len(t, dispatcher.sent, 1)
	assert.True(t, store.marked[task.ID])
}

func TestProximityCheck_SelectionFailureDoesNotPanic(t *testing.T) {
	store := newFakeStore()
	store.selectErr = errors.New("connection reset")
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	assert.NotPanics(t, func() { s.RunProximityCheck() })
	assert.Empty(t, dispatcher.sent)
}

func TestProximityCheck_DriftedTaskSkipped(t *testing.T) {
	// The store returned it, but by processing time it sits 20 minutes out.
	task := taskDueIn(20*time.Minute, "grace@example.com")
	store := newFakeStore(task)
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	s.RunProximityCheck()

	assert.Empty(t, dispatcher.sent)
	assert.False(t, store.marked[task.ID])
}

func TestProximityCheck_DueDateOnlyTaskRechecked(t *testing.T) {
	due := testClock.Add(2 * time.Minute)
	task := models.Task{
		ID:      uuid.Must(uuid.NewV4()),
		UserID:  uuid.Must(uuid.NewV4()),
		Title:   "Pay water bill",
		DueDate: &due,
		User:    models.User{Email: "grace@example.com", EmailNotifications: true},
	}
	store := newFakeStore(task)
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	s.RunProximityCheck()

	require.Len(t, dispatcher.sent, 1)
	assert.True(t, store.marked[task.ID])
}

func TestProximityCheck_PersistenceFailureStillCountsAsSent(t *testing.T) {
	task := taskDueIn(0, "grace@example.com")
	store := newFakeStore(task)
	store.markErr = errors.New("disk full")
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	assert.NotPanics(t, func() { s.RunProximityCheck() })
	assert.Len(t, dispatcher.sent, 1, "send happened even though the flag update failed")
}

func TestProximityCheck_LostConditionalUpdateTolerated(t *testing.T) {
	task := taskDueIn(0, "grace@example.com")
	store := newFakeStore(task)
	store.markLost = true
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	assert.NotPanics(t, func() { s.RunProximityCheck() })
	assert.Len(t, dispatcher.sent, 1)
}

func TestDailyDigest_NoTimingRecheck(t *testing.T) {
	// Due this evening, hours outside the proximity window.
	due := time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC)
	task := models.Task{
		ID:      uuid.Must(uuid.NewV4()),
		UserID:  uuid.Must(uuid.NewV4()),
		Title:   "Organize pill container",
		DueDate: &due,
		User:    models.User{Email: "grace@example.com", EmailNotifications: true},
	}
	store := newFakeStore(task)
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	s.RunDailyDigest()

	require.Len(t, dispatcher.sent, 1)
	assert.True(t, store.marked[task.ID])
}

func TestDailyDigest_DispatchFailureLeavesFlagClear(t *testing.T) {
	task := taskDueIn(time.Hour, "grace@example.com")
	store := newFakeStore(task)
	dispatcher := newFakeDispatcher()
	dispatcher.failFor[task.ID] = errors.New("quota exceeded")
	s := newTestScheduler(store, dispatcher)

	s.RunDailyDigest()

	assert.False(t, store.marked[task.ID])
}

func TestNightlyReset(t *testing.T) {
	task := taskDueIn(0, "grace@example.com")
	store := newFakeStore(task)
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, dispatcher)

	s.RunProximityCheck()
	require.True(t, store.marked[task.ID])

	s.RunNightlyReset()
	assert.Empty(t, store.marked, "reset must clear flags for incomplete tasks")
	assert.Equal(t, 1, store.resetCalls)
}

func TestNightlyReset_FailureDoesNotPanic(t *testing.T) {
	store := newFakeStore()
	store.resetErr = errors.New("lock timeout")
	s := newTestScheduler(store, newFakeDispatcher())

	assert.NotPanics(t, func() { s.RunNightlyReset() })
}

func TestGuard_RecoversPanickingTick(t *testing.T) {
	s := newTestScheduler(newFakeStore(), newFakeDispatcher())

	assert.NotPanics(t, func() {
		s.guard("proximity", func() { panic("boom") })
	})
}

func TestStart_InvalidDigestTime(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := New(newFakeStore(), newFakeDispatcher(), config.SchedulerConfig{
		ProximityInterval: time.Minute,
		ProximityWindow:   5 * time.Minute,
		DigestTime:        "not-a-time",
		Timezone:          time.UTC,
	}, logger)

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := newTestScheduler(newFakeStore(), newFakeDispatcher())

	require.NoError(t, s.Start())
	s.Stop()
}

func TestWithinWindow(t *testing.T) {
	s := newTestScheduler(newFakeStore(), newFakeDispatcher())

	near := testClock.Add(4 * time.Minute)
	far := testClock.Add(30 * time.Minute)

	assert.True(t, s.withinWindow(models.Task{ReminderTime: &near}, testClock))
	assert.False(t, s.withinWindow(models.Task{ReminderTime: &far}, testClock))
	assert.True(t, s.withinWindow(models.Task{DueDate: &near}, testClock))
	assert.True(t, s.withinWindow(models.Task{ReminderTime: &far, DueDate: &near}, testClock))
	assert.False(t, s.withinWindow(models.Task{}, testClock))

	// Boundary is inclusive.
	edge := testClock.Add(5 * time.Minute)
	assert.True(t, s.withinWindow(models.Task{ReminderTime: &edge}, testClock))
}

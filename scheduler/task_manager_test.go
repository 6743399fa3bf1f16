package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefinder/logger"
	"pricefinder/models"
)

func waitForStatus(t *testing.T, tm *TaskManager, id string, want models.TaskStatus) models.RefreshTask {
	t.Helper()
	var task models.RefreshTask
	require.Eventually(t, func() bool {
		var ok bool
		task, ok = tm.Get(id)
		return ok && task.Status == want
	}, time.Second, 5*time.Millisecond)
	return task
}

func TestTaskManagerCompletesTask(t *testing.T) {
	ref := &blockingRefresher{}
	tm := NewTaskManager(ref, time.Minute, logger.NewNop())
	defer tm.Stop()

	queued, err := tm.Submit([]int{4, 5})
	require.NoError(t, err)
	assert.NotEmpty(t, queued.ID)

	task := waitForStatus(t, tm, queued.ID, models.TaskStatusCompleted)
	require.NotNil(t, task.Result)
	assert.Equal(t, 1, task.Result.Updated)
	assert.NotNil(t, task.CompletedAt)
	assert.Equal(t, [][]int{{4, 5}}, ref.ids)
}

func TestTaskManagerRecordsFailure(t *testing.T) {
	tm := NewTaskManager(&blockingRefresher{err: errors.New("db down")}, 0, logger.NewNop())
	defer tm.Stop()

	queued, err := tm.Submit(nil)
	require.NoError(t, err)

	task := waitForStatus(t, tm, queued.ID, models.TaskStatusFailed)
	assert.Equal(t, "db down", task.Error)
	assert.Nil(t, task.Result)
}

func TestTaskManagerRunsOneTaskAtATime(t *testing.T) {
	ref := &blockingRefresher{release: make(chan struct{})}
	tm := NewTaskManager(ref, 0, logger.NewNop())
	defer tm.Stop()

	first, err := tm.Submit(nil)
	require.NoError(t, err)
	second, err := tm.Submit([]int{1})
	require.NoError(t, err)

	waitForStatus(t, tm, first.ID, models.TaskStatusProcessing)
	task, ok := tm.Get(second.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusQueued, task.Status)
	assert.Equal(t, 1, ref.count())

	stats := tm.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.TasksByStatus[models.TaskStatusProcessing])

	close(ref.release)
	waitForStatus(t, tm, second.ID, models.TaskStatusCompleted)
	assert.Equal(t, 2, ref.count())
}

func TestTaskManagerCleanup(t *testing.T) {
	tm := NewTaskManager(&blockingRefresher{}, 0, logger.NewNop())
	defer tm.Stop()

	queued, err := tm.Submit(nil)
	require.NoError(t, err)
	waitForStatus(t, tm, queued.ID, models.TaskStatusCompleted)

	tm.cleanup(time.Hour)
	_, ok := tm.Get(queued.ID)
	assert.True(t, ok)

	tm.mu.Lock()
	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	tm.mu.Unlock()
	tm.cleanup(time.Hour)
	_, ok = tm.Get(queued.ID)
	assert.False(t, ok)
}

func TestGetUnknownTask(t *testing.T) {
	tm := NewTaskManager(&blockingRefresher{}, 0, logger.NewNop())
	defer tm.Stop()

	_, ok := tm.Get("missing")
	assert.False(t, ok)
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"pricefinder/logger"
	"pricefinder/models"
)

const (
	defaultQueueSize = 100
	taskRetention    = time.Hour
	cleanupInterval  = time.Minute
)

// ErrQueueFull is returned when no more refresh tasks can be queued.
var ErrQueueFull = errors.New("refresh task queue is full")

// TaskManager runs bulk refreshes in the background. A single worker drains
// the queue so pages are never processed concurrently.
type TaskManager struct {
	refresher Refresher
	timeout   time.Duration
	log       logger.Logger
	now       func() time.Time

	mu    sync.RWMutex
	tasks map[string]*models.RefreshTask
	queue chan *models.RefreshTask

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTaskManager creates a task manager and starts its worker. timeout bounds
// each task; zero means no bound.
func NewTaskManager(refresher Refresher, timeout time.Duration, log logger.Logger) *TaskManager {
	ctx, cancel := context.WithCancel(context.Background())
	tm := &TaskManager{
		refresher: refresher,
		timeout:   timeout,
		log:       log,
		now:       time.Now,
		tasks:     make(map[string]*models.RefreshTask),
		queue:     make(chan *models.RefreshTask, defaultQueueSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go tm.run()
	return tm
}

// Submit queues a refresh of ids, or of every product when ids is empty.
func (tm *TaskManager) Submit(ids []int) (models.RefreshTask, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task := models.NewRefreshTask(ids, tm.now())
	select {
	case tm.queue <- task:
	default:
		return models.RefreshTask{}, ErrQueueFull
	}
	tm.tasks[task.ID] = task

	tm.log.Info("Refresh task queued", logger.String("task_id", task.ID), logger.Int("products", len(ids)))
	return *task, nil
}

// Get returns a snapshot of a task.
func (tm *TaskManager) Get(id string) (models.RefreshTask, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, ok := tm.tasks[id]
	if !ok {
		return models.RefreshTask{}, false
	}
	return *task, true
}

// Stats counts the known tasks by status.
func (tm *TaskManager) Stats() models.TaskStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := models.TaskStats{
		Total:         len(tm.tasks),
		QueueSize:     len(tm.queue),
		TasksByStatus: make(map[models.TaskStatus]int),
	}
	for _, task := range tm.tasks {
		stats.TasksByStatus[task.Status]++
	}
	return stats
}

// Stop cancels the running task and waits for the worker to exit. Queued
// tasks are left unprocessed.
func (tm *TaskManager) Stop() {
	tm.cancel()
	<-tm.done
	tm.log.Info("Task manager stopped")
}

func (tm *TaskManager) run() {
	defer close(tm.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case task := <-tm.queue:
			tm.process(task)
		case <-ticker.C:
			tm.cleanup(taskRetention)
		case <-tm.ctx.Done():
			return
		}
	}
}

func (tm *TaskManager) process(task *models.RefreshTask) {
	tm.mu.Lock()
	task.Start(tm.now())
	tm.mu.Unlock()

	ctx := tm.ctx
	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}

	summary, err := tm.refresher.Refresh(ctx, task.IDs)

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if err != nil {
		task.Fail(err.Error(), tm.now())
		tm.log.Error("Refresh task failed", logger.String("task_id", task.ID), logger.Error(err))
		return
	}
	task.Complete(summary, tm.now())
	tm.log.Info("Refresh task completed",
		logger.String("task_id", task.ID),
		logger.Int("updated", summary.Updated),
		logger.Duration("elapsed", task.Duration(tm.now())),
	)
}

// cleanup forgets completed tasks older than maxAge.
func (tm *TaskManager) cleanup(maxAge time.Duration) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	cutoff := tm.now().Add(-maxAge)
	for id, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, id)
		}
	}
}

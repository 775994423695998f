package workqueue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Queue runs tasks with a bounded number of concurrent workers. Task
// failures do not stop the queue; each task's error is recorded on its
// state and surfaced through Failed().
type Queue struct {
	mu        sync.Mutex
	tasks     []*TaskState
	running   int
	cancelled bool

	maxWorkers int

	// done is closed when all tasks reach a terminal state
	done chan struct{}
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// New creates a queue that runs at most maxWorkers tasks concurrently.
// The parent context bounds all task execution.
func New(parent context.Context, maxWorkers int, logger *zap.Logger) *Queue {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Queue{
		maxWorkers: maxWorkers,
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("workqueue"),
	}
}

// Enqueue adds a task to the queue and starts it if a worker is free.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		q.logger.Warn("queue cancelled, ignoring enqueue",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return
	}

	q.tasks = append(q.tasks, NewTaskState(task))
	q.tryStartTasksLocked()
}

// tryStartTasksLocked starts pending tasks while workers are free.
// Must be called with lock held.
func (q *Queue) tryStartTasksLocked() {
	if q.cancelled {
		return
	}

	for _, ts := range q.tasks {
		if q.running >= q.maxWorkers {
			return
		}
		if ts.GetStatus() != TaskStatusPending {
			continue
		}

		ts.SetStatus(TaskStatusRunning)
		q.running++

		q.logger.Debug("starting task",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))

		q.wg.Add(1)
		go q.runTask(ts)
	}
}

// runTask executes a single task and records its outcome.
func (q *Queue) runTask(ts *TaskState) {
	defer q.wg.Done()

	err := ts.Task.Execute(q.ctx)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.running--

	switch {
	case err == nil:
		ts.SetStatus(TaskStatusCompleted)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		ts.SetStatus(TaskStatusCancelled)
		ts.SetError(err)
		q.logger.Info("task cancelled",
			zap.String("task_name", ts.Task.Name()))
	default:
		ts.SetStatus(TaskStatusFailed)
		ts.SetError(err)
		q.logger.Warn("task failed",
			zap.String("task_name", ts.Task.Name()),
			zap.Error(err))
	}

	if q.allTasksDoneLocked() {
		q.closeDoneLocked()
		return
	}

	q.tryStartTasksLocked()
}

// allTasksDoneLocked returns true if all tasks are in a terminal state.
// Must be called with lock held.
func (q *Queue) allTasksDoneLocked() bool {
	for _, ts := range q.tasks {
		status := ts.GetStatus()
		if status == TaskStatusPending || status == TaskStatusRunning {
			return false
		}
	}
	return true
}

// closeDoneLocked safely closes the done channel.
// Must be called with lock held.
func (q *Queue) closeDoneLocked() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

// Wait blocks until all tasks reach a terminal state or the context is
// cancelled. Individual task failures are not returned here; inspect
// Failed() after Wait returns.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.Cancel()
		q.wg.Wait()
		return ctx.Err()
	}
}

// Cancel signals running tasks to stop and marks pending tasks cancelled.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return
	}
	q.cancelled = true
	q.cancel()

	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusPending {
			ts.SetStatus(TaskStatusCancelled)
		}
	}

	if q.allTasksDoneLocked() {
		q.closeDoneLocked()
	}
}

// Failed returns the states of tasks that failed with a non-cancellation
// error.
func (q *Queue) Failed() []*TaskState {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []*TaskState
	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusFailed {
			failed = append(failed, ts)
		}
	}
	return failed
}

// Cancelled returns true if any task was cut short by cancellation or a
// deadline.
func (q *Queue) Cancelled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return true
	}
	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusCancelled {
			return true
		}
	}
	return false
}

// TaskCount returns the total number of tasks.
func (q *Queue) TaskCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// CompletedCount returns the number of completed tasks.
func (q *Queue) CompletedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusCompleted {
			count++
		}
	}
	return count
}

package vim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gammazero/workerpool"

	"github.com/zjrosen/modal/internal/log"
)

// ErrQueueClosed is returned by Run after Close.
var ErrQueueClosed = errors.New("task queue closed")

// Task is one unit of serialized work.
type Task func(ctx context.Context) error

type queuedTask struct {
	ctx  context.Context
	fn   Task
	done chan error
}

// TaskQueue runs tasks strictly one at a time. High-priority tasks jump
// ahead of every queued normal task but never interrupt the running one.
type TaskQueue struct {
	pool *workerpool.WorkerPool

	mu        sync.Mutex
	pending   []*queuedTask
	highCount int
	closed    bool

	processed atomic.Int64
	panics    atomic.Int64
}

// NewTaskQueue starts a queue backed by a single worker.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{pool: workerpool.New(1)}
}

// Enqueue schedules fn and returns a channel receiving its result.
func (q *TaskQueue) Enqueue(ctx context.Context, high bool, fn Task) (<-chan error, error) {
	t := &queuedTask{ctx: context.WithoutCancel(ctx), fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	if high {
		q.pending = slices.Insert(q.pending, q.highCount, t)
		q.highCount++
	} else {
		q.pending = append(q.pending, t)
	}
	q.mu.Unlock()

	// Each submission runs whichever task is at the front when the worker
	// gets to it, so a high-priority task submitted last still runs next.
	q.pool.Submit(q.runNext)
	return t.done, nil
}

// Run enqueues fn and waits for it. Cancelling ctx stops the wait, not the task.
func (q *TaskQueue) Run(ctx context.Context, high bool, fn Task) error {
	done, err := q.Enqueue(ctx, high, fn)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *TaskQueue) runNext() {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	if q.highCount > 0 {
		q.highCount--
	}
	q.mu.Unlock()

	t.done <- q.execute(t)
	q.processed.Add(1)
}

func (q *TaskQueue) execute(t *queuedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Add(1)
			err = fmt.Errorf("task panicked: %v", r)
			log.Error(log.CatQueue, "task panicked", "panic", r)
		}
	}()
	return t.fn(t.ctx)
}

// Len returns the number of tasks waiting to run.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Processed returns the number of tasks run so far.
func (q *TaskQueue) Processed() int64 {
	return q.processed.Load()
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.pool.StopWait()
}

package vim

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_RunsInOrder(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()

	var mu sync.Mutex
	var order []int
	var chans []<-chan error
	for i := range 5 {
		done, err := q.Enqueue(ctx, false, func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		chans = append(chans, done)
	}
	for _, done := range chans {
		require.NoError(t, <-done)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, int64(5), q.Processed())
}

func TestTaskQueue_HighPriorityJumpsAhead(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := q.Enqueue(ctx, false, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	var mu sync.Mutex
	var order []string
	record := func(name string) Task {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	low, err := q.Enqueue(ctx, false, record("key"))
	require.NoError(t, err)
	high, err := q.Enqueue(ctx, true, record("selection"))
	require.NoError(t, err)
	assert.Equal(t, 2, q.Len())

	close(release)
	require.NoError(t, <-low)
	require.NoError(t, <-high)
	assert.Equal(t, []string{"selection", "key"}, order)
}

func TestTaskQueue_ReturnsTaskError(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()

	boom := errors.New("boom")
	err := q.Run(ctx, false, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestTaskQueue_RecoversPanics(t *testing.T) {
	q := NewTaskQueue()
	defer q.Close()

	err := q.Run(ctx, false, func(context.Context) error { panic("bad task") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad task")

	require.NoError(t, q.Run(ctx, false, func(context.Context) error { return nil }), "the queue keeps running")
}

func TestTaskQueue_RejectsAfterClose(t *testing.T) {
	q := NewTaskQueue()
	q.Close()
	q.Close()

	_, err := q.Enqueue(ctx, false, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestTaskQueue_CancelledWaitStillRunsTask(t *testing.T) {
	q := NewTaskQueue()

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	ran := make(chan struct{})
	err := q.Run(cctx, false, func(context.Context) error {
		close(ran)
		return nil
	})
	q.Close()

	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	select {
	case <-ran:
	default:
		t.Fatal("task did not run before Close returned")
	}
}

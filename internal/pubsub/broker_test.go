package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for event")
	}
	return Event[T]{}
}

func TestBroker_Subscribe(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ch := b.Subscribe(context.Background())
	b.Publish(ModeChangedEvent, "insert")

	ev := receive(t, ch)
	require.Equal(t, "insert", ev.Payload)
	require.Equal(t, ModeChangedEvent, ev.Type)
	require.False(t, ev.Timestamp.IsZero())
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	b := NewBroker[int]()
	defer b.Close()

	chans := []<-chan Event[int]{
		b.Subscribe(context.Background()),
		b.Subscribe(context.Background()),
		b.Subscribe(context.Background()),
	}
	require.Equal(t, 3, b.SubscriberCount())

	b.Publish(ViewChangedEvent, 42)
	for _, ch := range chans {
		require.Equal(t, 42, receive(t, ch).Payload)
	}
}

func TestBroker_FilteredSubscription(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ch := b.Subscribe(context.Background(), ModeChangedEvent)
	b.Publish(ViewChangedEvent, "view")
	b.Publish(ModeChangedEvent, "mode")

	require.Equal(t, "mode", receive(t, ch).Payload)
	select {
	case ev := <-ch:
		require.Failf(t, "unexpected event", "%v", ev)
	default:
	}
}

func TestBroker_ContextCancellation(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
}

func TestBroker_NonBlockingCountsDrops(t *testing.T) {
	b := NewBrokerWithBuffer[int](1)
	defer b.Close()

	ch := b.Subscribe(context.Background())
	b.Publish(ViewChangedEvent, 1)
	b.Publish(ViewChangedEvent, 2)
	b.Publish(ViewChangedEvent, 3)

	require.Equal(t, 1, receive(t, ch).Payload)
	require.Equal(t, uint64(2), b.Dropped())
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker[string]()
	ch := b.Subscribe(context.Background())

	b.Close()
	b.Close()

	_, ok := <-ch
	require.False(t, ok)
	require.Equal(t, 0, b.SubscriberCount())

	late := b.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok, "subscribing after close yields a closed channel")

	b.Publish(ViewChangedEvent, "ignored")
}

func TestBroker_ConcurrentPublish(t *testing.T) {
	b := NewBrokerWithBuffer[int](1000)
	defer b.Close()
	ch := b.Subscribe(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				b.Publish(ViewChangedEvent, n*10+j)
			}
		}(i)
	}
	wg.Wait()
	require.Len(t, ch, 100)
}

package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReceivesEvent(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx := context.Background()
	ch := b.Subscribe(ctx)
	b.Publish(CommandLineEvent, ":wq")

	ev, ok := ListenCmd(ctx, ch)().(Event[string])
	require.True(t, ok, "msg should be Event[string]")
	require.Equal(t, ":wq", ev.Payload)
}

func TestListenCmd_ContextCancelled(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	require.Nil(t, ListenCmd(ctx, ch)())
}

func TestListenCmd_ChannelClosed(t *testing.T) {
	b := NewBroker[string]()
	ch := b.Subscribe(context.Background())
	b.Close()

	require.Nil(t, ListenCmd(context.Background(), ch)())
}

func TestContinuousListener_Filtered(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewContinuousListener(ctx, b, ModeChangedEvent)
	b.Publish(ViewChangedEvent, "skip")
	b.Publish(ModeChangedEvent, "normal")

	ev, ok := l.Listen()().(Event[string])
	require.True(t, ok)
	require.Equal(t, "normal", ev.Payload)
}

package vim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/cursor"
	"github.com/zjrosen/modal/internal/pubsub"
)

// mockHost records Apply calls and forwards them to an in-memory buffer
// unless the expectation returns an error.
type mockHost struct {
	*buffer.Memory
	mock.Mock
}

func newMockHost(text string) *mockHost {
	return &mockHost{Memory: buffer.NewMemory(text)}
}

func (m *mockHost) Apply(ctx context.Context, edits []buffer.Edit) error {
	args := m.Called(ctx, edits)
	if err := args.Error(0); err != nil {
		return err
	}
	return m.Memory.Apply(ctx, edits)
}

func TestSession_HostApplyFailureAbortsCycle(t *testing.T) {
	host := newMockHost("abc")
	errReadOnly := errors.New("buffer is read-only")
	host.On("Apply", mock.Anything, mock.Anything).Return(errReadOnly).Once()

	s := NewSession(host, WithGlobalState(NewGlobalState()))
	t.Cleanup(s.Close)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	failures := s.Events().Subscribe(subCtx, pubsub.DispatchFailureEvent)

	press(t, s, "l")
	press(t, s, "x")

	assert.Equal(t, "abc", host.Text())
	assert.Equal(t, ModeNormal, s.Mode())
	assert.Equal(t, []cursor.Range{at(0, 1)}, s.Cursors())
	assert.Empty(t, s.Pending())

	select {
	case ev := <-failures:
		require.Error(t, ev.Payload.Err)
		assert.ErrorIs(t, ev.Payload.Err, errReadOnly)
	case <-time.After(time.Second):
		t.Fatal("no dispatch failure event")
	}

	// The session keeps working once the host accepts edits again.
	host.On("Apply", mock.Anything, mock.Anything).Return(nil)
	press(t, s, "x")
	assert.Equal(t, "ac", host.Text())
	host.AssertNumberOfCalls(t, "Apply", 2)
}

func TestSession_HostApplyReceivesOneBatchPerCycle(t *testing.T) {
	host := newMockHost("one\ntwo\nthree")
	host.On("Apply", mock.Anything, mock.MatchedBy(func(edits []buffer.Edit) bool {
		return len(edits) == 3
	})).Return(nil).Once()

	host.SetSelections([]cursor.Range{at(0, 0), at(1, 0), at(2, 0)})
	s := NewSession(host, WithGlobalState(NewGlobalState()))
	t.Cleanup(s.Close)

	press(t, s, "x")
	assert.Equal(t, "ne\nwo\nhree", host.Text())
	host.AssertExpectations(t)
}

func TestSession_OverlappingEditsApplyOneAtATime(t *testing.T) {
	host := newMockHost("abcdef")
	single := mock.MatchedBy(func(edits []buffer.Edit) bool { return len(edits) == 1 })
	host.On("Apply", mock.Anything, single).Return(nil).Twice()

	s := NewSession(host, WithGlobalState(NewGlobalState()))
	t.Cleanup(s.Close)

	require.NoError(t, s.HandleSelectionChange(ctx, []cursor.Range{
		cursor.NewRange(cursor.At(0, 0), cursor.At(0, 2)),
		cursor.NewRange(cursor.At(0, 1), cursor.At(0, 3)),
	}))
	require.Equal(t, ModeVisual, s.Mode())

	press(t, s, "d")

	host.AssertExpectations(t)
	host.AssertNumberOfCalls(t, "Apply", 2)
	assert.Equal(t, "d", host.Text())
	assert.Equal(t, ModeNormal, s.Mode())
}

package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadThroughCache_ComputesOnce(t *testing.T) {
	calls := 0
	c := NewReadThroughCache[string, int, string](
		NewInMemoryCacheManager[string, int]("patterns", DefaultExpiration, DefaultCleanupInterval),
		func(_ context.Context, in string) (int, error) {
			calls++
			return len(in), nil
		},
		time.Minute,
	)

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "foo", "foo")
		require.NoError(t, err)
		require.Equal(t, 3, v)
	}
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_ErrorsNotCached(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	c := NewReadThroughCache[string, int, string](
		NewInMemoryCacheManager[string, int]("patterns", DefaultExpiration, DefaultCleanupInterval),
		func(context.Context, string) (int, error) {
			calls++
			return 0, boom
		},
		time.Minute,
	)

	_, err := c.Get(context.Background(), "k", "k")
	require.ErrorIs(t, err, boom)
	_, err = c.Get(context.Background(), "k", "k")
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

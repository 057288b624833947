package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type windowKey string

func TestInMemoryCacheManager_SetGet(t *testing.T) {
	c := NewInMemoryCacheManager[windowKey, time.Time]("remap-window", DefaultExpiration, DefaultCleanupInterval)
	now := time.Now()
	c.Set(context.Background(), "last", now, time.Minute)

	got, ok := c.Get(context.Background(), "last")
	require.True(t, ok)
	require.Equal(t, now, got)
	require.Equal(t, 1, c.Len())
}

func TestInMemoryCacheManager_Miss(t *testing.T) {
	c := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	got, ok := c.Get(context.Background(), "missing")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_WrongType(t *testing.T) {
	c := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)
	c.cache.Set("k", 123, DefaultExpiration)

	got, ok := c.Get(context.Background(), "k")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	c := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	c.Set(context.Background(), "k", 1, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(context.Background(), "k")
	require.False(t, ok, "entry should expire after its ttl")
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	c := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	c.Set(context.Background(), "k", 7, 40*time.Millisecond)

	time.Sleep(25 * time.Millisecond)
	v, ok := c.GetWithRefresh(context.Background(), "k", 40*time.Millisecond)
	require.True(t, ok)
	require.Equal(t, 7, v)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get(context.Background(), "k")
	require.True(t, ok, "refresh should have extended the ttl")
}

func TestInMemoryCacheManager_DeleteFlush(t *testing.T) {
	c := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()
	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)
	c.Set(ctx, "c", 3, 0)

	c.Delete(ctx, "a", "b")
	_, ok := c.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, c.Len())

	c.Flush(ctx)
	require.Equal(t, 0, c.Len())
}

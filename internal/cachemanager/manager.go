// Package cachemanager wraps go-cache behind a typed, TTL-aware interface.
//
// The engine uses it for two short-lived lookups: the remap timeout window
// (an entry that expires when the keystroke window closes) and compiled
// search patterns behind a read-through cache.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed key/value cache with per-entry expiry.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K)
	Flush(ctx context.Context)
	Len() int
}

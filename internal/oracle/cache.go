package oracle

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cachedScore struct {
	score float32
	err   error
}

// Cache memoizes an oracle by text pair. Concurrent lookups of the same pair
// share one inner call; each caller still stops waiting when its own context
// is done. Failures are memoized as well, so a Cache should live no longer
// than one batch. Context errors are not memoized.
type Cache struct {
	inner Oracle

	mu      sync.RWMutex
	entries map[string]cachedScore
	group   singleflight.Group
}

// NewCache wraps inner with an empty cache.
func NewCache(inner Oracle) *Cache {
	return &Cache{
		inner:   inner,
		entries: make(map[string]cachedScore),
	}
}

func (c *Cache) Similarity(ctx context.Context, a, b string) (float32, error) {
	key := Key(a, b)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry.score, entry.err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.RLock()
		existing, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		score, err := c.inner.Similarity(ctx, a, b)
		computed := cachedScore{score: score, err: err}

		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			c.mu.Lock()
			c.entries[key] = computed
			c.mu.Unlock()
		}

		return computed, nil
	})

	select {
	case res := <-ch:
		entry = res.Val.(cachedScore)
		return entry.score, entry.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Len returns the number of memoized pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

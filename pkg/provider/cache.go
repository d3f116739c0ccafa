package provider

import (
	"context"
	"sync"
)

// Cache is a LIFO buffer of fetched results that refills itself when it
// runs dry. It is safe for concurrent use.
type Cache[T any] struct {
	mu    sync.Mutex
	items []T
}

// Push appends items to the cache
func (c *Cache[T]) Push(items ...T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, items...)
}

// Pop removes and returns the most recently pushed item. When the cache is
// empty refill is called once; ok is false if it yields nothing.
func (c *Cache[T]) Pop(ctx context.Context, refill func(context.Context) ([]T, error)) (item T, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 && refill != nil {
		fresh, err := refill(ctx)
		if err != nil {
			return item, false, err
		}
		c.items = append(c.items, fresh...)
	}
	if len(c.items) == 0 {
		return item, false, nil
	}
	last := len(c.items) - 1
	item = c.items[last]
	c.items = c.items[:last]
	return item, true, nil
}

// Snapshot returns a copy of the pending items, oldest first
func (c *Cache[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of cached items
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

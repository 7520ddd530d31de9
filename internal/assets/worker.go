package assets

import (
	"context"
	"errors"
	"slices"
)

// Start runs background reconciliation fed by Schedule until Close or until
// ctx is cancelled.
func (c *Cache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.stop != nil {
		c.mu.Unlock()
		return
	}
	ctx, c.stop = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.worker(ctx)
}

// Schedule queues keys for background reconciliation. Only the latest key
// set is kept, so a burst of commits costs one pass.
func (c *Cache) Schedule(keys []string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.nextKeys = slices.Clone(keys)
	c.queued = true
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Cache) worker(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}

		c.mu.Lock()
		keys, ok := c.nextKeys, c.queued
		c.nextKeys, c.queued = nil, false
		c.mu.Unlock()
		if !ok {
			continue
		}

		if err := c.Reconcile(ctx, keys); errors.Is(err, ErrClosed) {
			return
		}
	}
}

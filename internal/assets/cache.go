// Package assets lazily fetches binary content (images, CVs) per record key
// and keeps at most one live handle per key. Handles for keys that leave the
// collection, or for every key once the cache is closed, are revoked.
package assets

import (
	"context"
	"errors"
	"log"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/justsurfingit/talent-dashboard/internal/client"
)

const DefaultConcurrency = 4

var (
	ErrAssetMissing = errors.New("asset missing")
	ErrClosed       = errors.New("asset cache closed")
)

// Handle is a locally dereferenceable reference to one record's content.
type Handle struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Minter turns content into a handle URL and releases it again.
type Minter interface {
	Mint(data []byte, contentType string) (string, error)
	Revoke(url string)
}

// FetchFunc loads the content for one record key.
type FetchFunc func(ctx context.Context, key string) (*client.Blob, error)

type Config struct {
	Name           string
	Fetch          FetchFunc
	Minter         Minter
	PlaceholderURL string
	Concurrency    int
	Logger         *log.Logger
}

type Cache struct {
	name        string
	fetch       FetchFunc
	minter      Minter
	placeholder string
	concurrency int
	logger      *log.Logger

	mu      sync.Mutex
	handles map[string]Handle
	pending map[string]uint64 // key -> ticket of the fetch allowed to store
	ticket  uint64
	closed  bool

	// background reconciliation, see Schedule
	wake     chan struct{}
	nextKeys []string
	queued   bool
	stop     context.CancelFunc
	done     chan struct{}
}

func New(cfg Config) *Cache {
	c := &Cache{
		name:        cfg.Name,
		fetch:       cfg.Fetch,
		minter:      cfg.Minter,
		placeholder: cfg.PlaceholderURL,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		handles:     make(map[string]Handle),
		pending:     make(map[string]uint64),
		wake:        make(chan struct{}, 1),
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

func (c *Cache) Name() string { return c.name }

// Reconcile makes the cache match keys: handles for keys not in keys are
// revoked, and keys without a handle or an in-flight fetch are fetched.
// Failed fetches store a placeholder and are not retried until Invalidate.
// Fetch errors are absorbed; only ErrClosed is returned.
func (c *Cache) Reconcile(ctx context.Context, keys []string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	for key, h := range c.handles {
		if _, ok := want[key]; !ok {
			c.release(h)
			delete(c.handles, key)
		}
	}
	for key := range c.pending {
		if _, ok := want[key]; !ok {
			delete(c.pending, key)
		}
	}

	type job struct {
		key    string
		ticket uint64
	}
	var missing []job
	for _, key := range keys {
		if _, ok := c.handles[key]; ok {
			continue
		}
		if _, ok := c.pending[key]; ok {
			continue
		}
		c.ticket++
		c.pending[key] = c.ticket
		missing = append(missing, job{key: key, ticket: c.ticket})
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, j := range missing {
		g.Go(func() error {
			blob, err := c.fetch(gctx, j.key)
			c.store(j.key, j.ticket, blob, err)
			return nil
		})
	}
	return g.Wait()
}

func (c *Cache) store(key string, ticket uint64, blob *client.Blob, fetchErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.pending[key] != ticket {
		// Evicted, invalidated or closed while in flight; nothing was minted.
		return
	}
	delete(c.pending, key)

	h := Handle{Key: key}
	switch {
	case fetchErr != nil && errors.Is(fetchErr, context.Canceled):
		// Not a missing asset; leave the key empty so the next pass retries.
		return
	case fetchErr != nil || blob == nil:
		if fetchErr == nil {
			fetchErr = ErrAssetMissing
		}
		c.logger.Printf("[assets %s] key %s: using placeholder: %v", c.name, key, fetchErr)
		h.URL = c.placeholder
		h.Placeholder = true
	default:
		url, err := c.minter.Mint(blob.Data, blob.ContentType)
		if err != nil {
			c.logger.Printf("[assets %s] key %s: mint failed, using placeholder: %v", c.name, key, err)
			h.URL = c.placeholder
			h.Placeholder = true
			break
		}
		h.URL = url
		h.ContentType = blob.ContentType
		h.Size = len(blob.Data)
	}

	if old, ok := c.handles[key]; ok {
		c.release(old)
	}
	c.handles[key] = h
}

// Invalidate revokes key's handle (and forgets any in-flight fetch) so the
// next reconciliation fetches it again.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[key]; ok {
		c.release(h)
		delete(c.handles, key)
	}
	delete(c.pending, key)
}

// Get returns the handle stored for key.
func (c *Cache) Get(key string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[key]
	return h, ok
}

// Handles returns a copy of every stored handle keyed by record key.
func (c *Cache) Handles() map[string]Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.handles)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// Close stops background reconciliation and revokes every handle. Fetches
// still in flight are discarded when they resolve.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key, h := range c.handles {
		c.release(h)
		delete(c.handles, key)
	}
	clear(c.pending)
	stop, done := c.stop, c.done
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// release revokes a minted handle. Callers hold c.mu.
func (c *Cache) release(h Handle) {
	if h.Placeholder {
		return
	}
	c.minter.Revoke(h.URL)
}

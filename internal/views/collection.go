package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/justsurfingit/talent-dashboard/internal/assets"
	"github.com/justsurfingit/talent-dashboard/internal/services"
	"github.com/justsurfingit/talent-dashboard/internal/syncer"
)

var ErrNoAssets = errors.New("collection has no assets")

// Status is a point-in-time summary of one collection.
type Status struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Version uint64 `json:"version"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
	Assets  int    `json:"assets,omitempty"`
}

// Collection is one synchronized list, optionally with an asset cache.
type Collection interface {
	Name() string
	Status() Status
	// Records returns a copy of the current snapshot as a []T.
	Records() any
	// Assets returns the live handles by record key; nil without a cache.
	Assets() map[string]assets.Handle
	Refresh(ctx context.Context) error
	// RetryAsset drops key's handle and fetches it again in the background.
	RetryAsset(key string) error
	// OnChange registers fn to run after each commit or failed poll.
	OnChange(fn func(Status))

	mount(ctx context.Context) error
	unmount()
	running() bool
}

// Def describes a collection of records of type T.
type Def[T any] struct {
	Name     string
	Fetch    syncer.FetchFunc[T]
	Key      func(T) string
	Interval time.Duration

	// Asset, when set, lazily caches one blob per record. HasAsset narrows
	// which records have one; nil means all of them.
	Asset    assets.FetchFunc
	HasAsset func(T) bool
}

// Deps are shared by every collection of a view.
type Deps struct {
	Minter         assets.Minter
	PlaceholderURL string
	Concurrency    int
	Journal        *services.JournalService
	Logger         *log.Logger
}

type collection[T any] struct {
	def   Def[T]
	sync  *syncer.Synchronizer[T]
	cache *assets.Cache

	mu        sync.Mutex
	listeners []func(Status)
	// prints holds the encoded record behind each asset key as of the last
	// commit.
	prints map[string]string
}

// NewCollection wires a synchronizer to its asset cache and the journal.
func NewCollection[T any](def Def[T], deps Deps) Collection {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	c := &collection[T]{def: def}
	c.sync = syncer.New(syncer.Config[T]{
		Name:     def.Name,
		Fetch:    def.Fetch,
		Interval: def.Interval,
		Logger:   deps.Logger,
	})
	if def.Asset != nil {
		c.cache = assets.New(assets.Config{
			Name:           def.Name,
			Fetch:          def.Asset,
			Minter:         deps.Minter,
			PlaceholderURL: deps.PlaceholderURL,
			Concurrency:    deps.Concurrency,
			Logger:         deps.Logger,
		})
	}

	journal := deps.Journal
	c.sync.OnCommit(func(snapshot []T) {
		if c.cache != nil {
			for _, key := range c.changedKeys(snapshot) {
				c.cache.Invalidate(key)
			}
			c.cache.Schedule(c.assetKeys(snapshot))
		}
		journal.RecordCommit(def.Name, len(snapshot))
		c.emit()
	})
	c.sync.OnError(func(err error) {
		journal.RecordFailure(def.Name, err)
		c.emit()
	})
	return c
}

func (c *collection[T]) Name() string { return c.def.Name }

func (c *collection[T]) Status() Status {
	st := Status{
		Name:    c.def.Name,
		State:   c.sync.State().String(),
		Version: c.sync.Version(),
		Records: len(c.sync.Snapshot()),
	}
	if err := c.sync.Err(); err != nil {
		st.Error = err.Error()
	}
	if c.cache != nil {
		st.Assets = c.cache.Len()
	}
	return st
}

func (c *collection[T]) Records() any {
	records := c.sync.Snapshot()
	if records == nil {
		records = []T{}
	}
	return records
}

func (c *collection[T]) Assets() map[string]assets.Handle {
	if c.cache == nil {
		return nil
	}
	return c.cache.Handles()
}

func (c *collection[T]) Refresh(ctx context.Context) error {
	err := c.sync.Refresh(ctx)
	switch {
	case errors.Is(err, syncer.ErrSuperseded):
		return nil
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		// A newer refresh took over.
		return nil
	}
	return err
}

func (c *collection[T]) RetryAsset(key string) error {
	if c.cache == nil {
		return fmt.Errorf("%s: %w", c.def.Name, ErrNoAssets)
	}
	c.cache.Invalidate(key)
	c.cache.Schedule(c.assetKeys(c.sync.Snapshot()))
	return nil
}

func (c *collection[T]) OnChange(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *collection[T]) mount(ctx context.Context) error {
	if c.cache != nil {
		c.cache.Start(ctx)
	}
	return c.sync.Start(ctx)
}

// unmount stops polling before closing the cache so no commit can schedule
// work against a closed cache.
func (c *collection[T]) unmount() {
	c.sync.Stop()
	if c.cache != nil {
		c.cache.Close()
	}
}

func (c *collection[T]) running() bool { return c.sync.Running() }

func (c *collection[T]) assetKeys(snapshot []T) []string {
	keys := make([]string, 0, len(snapshot))
	for _, rec := range snapshot {
		if c.def.HasAsset != nil && !c.def.HasAsset(rec) {
			continue
		}
		keys = append(keys, c.def.Key(rec))
	}
	return keys
}

// changedKeys returns the asset keys whose record differs from the one it
// replaces, and remembers snapshot for the next commit. New keys are not
// reported; they have no handle yet.
func (c *collection[T]) changedKeys(snapshot []T) []string {
	prints := make(map[string]string, len(snapshot))
	for _, rec := range snapshot {
		if c.def.HasAsset != nil && !c.def.HasAsset(rec) {
			continue
		}
		b, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		prints[c.def.Key(rec)] = string(b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var changed []string
	for key, p := range prints {
		if old, ok := c.prints[key]; ok && old != p {
			changed = append(changed, key)
		}
	}
	c.prints = prints
	return changed
}

func (c *collection[T]) emit() {
	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()
	if len(listeners) == 0 {
		return
	}
	st := c.Status()
	for _, fn := range listeners {
		fn(st)
	}
}

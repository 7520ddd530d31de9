// Package views assembles the collections each role sees and owns their
// lifetime: mounting starts every poller and asset worker, unmounting stops
// them and revokes every asset handle.
package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/justsurfingit/talent-dashboard/internal/models"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrMounted           = errors.New("view already mounted")
)

type View struct {
	Role string
	User models.User

	collections []Collection
	byName      map[string]Collection
	logger      *log.Logger

	mu      sync.Mutex
	mounted bool
	closed  bool
}

func New(user models.User, logger *log.Logger, collections ...Collection) *View {
	if logger == nil {
		logger = log.Default()
	}
	v := &View{
		Role:        user.Role,
		User:        user,
		collections: collections,
		byName:      make(map[string]Collection, len(collections)),
		logger:      logger,
	}
	for _, c := range collections {
		v.byName[c.Name()] = c
	}
	return v
}

// Mount starts every collection. A view mounts at most once.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mounted || v.closed {
		return ErrMounted
	}

	for i, c := range v.collections {
		if err := c.mount(ctx); err != nil {
			for _, started := range v.collections[:i+1] {
				started.unmount()
			}
			v.closed = true
			return fmt.Errorf("mount %s: %w", c.Name(), err)
		}
	}
	v.mounted = true
	v.logger.Printf("[view %s] mounted %d collections for %s", v.Role, len(v.collections), v.User.Username)
	return nil
}

// Unmount stops every collection and releases every asset handle. It is
// idempotent.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true

	var wg sync.WaitGroup
	for _, c := range v.collections {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.unmount()
		}()
	}
	wg.Wait()
	if v.mounted {
		v.logger.Printf("[view %s] unmounted", v.Role)
	}
}

// Running reports whether any collection is still polling.
func (v *View) Running() bool {
	for _, c := range v.collections {
		if c.running() {
			return true
		}
	}
	return false
}

func (v *View) Collection(name string) (Collection, error) {
	c, ok := v.byName[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCollection)
	}
	return c, nil
}

func (v *View) Collections() []Collection {
	return v.collections
}

// Invalidate refreshes the named collections that this view has. Names the
// view does not carry are ignored, so callers can invalidate every
// collection a mutation may touch regardless of role.
func (v *View) Invalidate(ctx context.Context, names ...string) error {
	var errs []error
	for _, name := range names {
		c, ok := v.byName[name]
		if !ok {
			continue
		}
		if err := c.Refresh(ctx); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Package syncer keeps a local snapshot of a remote collection eventually
// consistent with the backend by polling it on a fixed interval.
//
// A Synchronizer runs at most one interval-triggered fetch at a time; ticks
// that fire while a fetch is in flight are dropped. Manual refreshes bypass
// the schedule and cancel whatever is in flight. Every fetch is numbered
// when it starts and a result is applied only if no later-started fetch has
// already been applied, so a slow stale response never overwrites fresher
// data. After Stop, late results are discarded.
package syncer

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"
	"time"
)

const DefaultInterval = 10 * time.Second

var (
	ErrNotStarted     = errors.New("synchronizer not started")
	ErrAlreadyStarted = errors.New("synchronizer already started")
	ErrStopped        = errors.New("synchronizer stopped")
	// ErrSuperseded is returned by Refresh when a later fetch was applied
	// before this one resolved.
	ErrSuperseded = errors.New("fetch superseded by a newer one")
)

type State int

const (
	Idle State = iota
	Fetching
	Comparing
	Committing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Comparing:
		return "comparing"
	case Committing:
		return "committing"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// FetchFunc loads the full collection. It must honor ctx cancellation;
// Stop waits for every started fetch to return.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// EqualFunc reports whether two snapshots are the same.
type EqualFunc[T any] func(a, b []T) bool

type Config[T any] struct {
	Name     string
	Fetch    FetchFunc[T]
	Interval time.Duration
	Equal    EqualFunc[T] // defaults to JSONEqual
	Logger   *log.Logger
}

type Synchronizer[T any] struct {
	name     string
	fetch    FetchFunc[T]
	interval time.Duration
	equal    EqualFunc[T]
	logger   *log.Logger

	mu          sync.Mutex
	state       State
	snapshot    []T
	hasSnapshot bool
	version     uint64
	err         error
	seq         uint64 // last initiated fetch
	applied     uint64 // last fetch whose result was applied
	inFlight    map[uint64]context.CancelFunc
	live        bool
	started     bool
	loopCtx     context.Context
	stopLoop    context.CancelFunc
	done        chan struct{}
	onCommit    []func(snapshot []T)
	onError     []func(err error)

	// notifyMu serializes listener calls; notified is the last version
	// delivered to commit listeners.
	notifyMu sync.Mutex
	notified uint64

	// fetches counts started fetches until their result and listeners are
	// done; Stop waits on it.
	fetches sync.WaitGroup
}

func New[T any](cfg Config[T]) *Synchronizer[T] {
	s := &Synchronizer[T]{
		name:     cfg.Name,
		fetch:    cfg.Fetch,
		interval: cfg.Interval,
		equal:    cfg.Equal,
		logger:   cfg.Logger,
		inFlight: make(map[uint64]context.CancelFunc),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.equal == nil {
		s.equal = JSONEqual[T]
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

func (s *Synchronizer[T]) Name() string            { return s.name }
func (s *Synchronizer[T]) Interval() time.Duration { return s.interval }

// OnCommit registers fn to run after every snapshot replacement. fn must
// treat the slice as read-only and must not call Refresh or Stop
// synchronously.
func (s *Synchronizer[T]) OnCommit(fn func(snapshot []T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = append(s.onCommit, fn)
}

// OnError registers fn to run after every failed fetch that was not
// superseded.
func (s *Synchronizer[T]) OnError(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
}

// Start performs an immediate fetch and then polls every interval until ctx
// is cancelled or Stop is called.
func (s *Synchronizer[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.live = true
	s.loopCtx, s.stopLoop = context.WithCancel(ctx)
	s.done = make(chan struct{})
	loopCtx := s.loopCtx
	s.mu.Unlock()

	go s.loop(loopCtx)
	return nil
}

func (s *Synchronizer[T]) loop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.live = false
		for seq, cancel := range s.inFlight {
			cancel()
			delete(s.inFlight, seq)
		}
		s.state = Idle
		s.mu.Unlock()
		close(s.done)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Synchronizer[T]) tick(ctx context.Context) {
	seq, fetchCtx, ok := s.begin(ctx, false)
	if !ok {
		return
	}
	go func() {
		_ = s.run(fetchCtx, seq)
	}()
}

// Refresh fetches immediately, bypassing the interval, and cancels any
// in-flight fetch. It returns once this fetch has resolved.
func (s *Synchronizer[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	loopCtx := s.loopCtx
	s.mu.Unlock()

	seq, fetchCtx, ok := s.begin(loopCtx, true)
	if !ok {
		return ErrStopped
	}
	stop := context.AfterFunc(ctx, func() { s.cancelFetch(seq) })
	defer stop()
	return s.run(fetchCtx, seq)
}

// Stop cancels the schedule and every in-flight fetch, and returns once the
// poll loop has exited and every started fetch has resolved. Results that
// resolve after Stop began are discarded and no listener runs once Stop has
// returned. Stop is idempotent.
func (s *Synchronizer[T]) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	wasLive := s.live
	s.live = false
	for seq, cancel := range s.inFlight {
		cancel()
		delete(s.inFlight, seq)
	}
	s.state = Idle
	stopLoop, done := s.stopLoop, s.done
	s.mu.Unlock()

	stopLoop()
	<-done
	s.fetches.Wait()
	if wasLive {
		s.logger.Printf("[sync %s] stopped", s.name)
	}
}

// Running reports whether the poll loop is active.
func (s *Synchronizer[T]) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Snapshot returns a copy of the current snapshot.
func (s *Synchronizer[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snapshot)
}

// Version increments on every commit; 0 means nothing committed yet.
func (s *Synchronizer[T]) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Err returns the error from the most recent applied fetch, or nil once a
// later fetch succeeded.
func (s *Synchronizer[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Synchronizer[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer[T]) begin(parent context.Context, manual bool) (uint64, context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live {
		return 0, nil, false
	}
	if !manual && len(s.inFlight) > 0 {
		s.logger.Printf("[sync %s] tick skipped, fetch still in flight", s.name)
		return 0, nil, false
	}
	if manual {
		for seq, cancel := range s.inFlight {
			cancel()
			delete(s.inFlight, seq)
		}
	}

	s.seq++
	ctx, cancel := context.WithCancel(parent)
	s.inFlight[s.seq] = cancel
	s.state = Fetching
	s.fetches.Add(1)
	return s.seq, ctx, true
}

func (s *Synchronizer[T]) cancelFetch(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.inFlight[seq]; ok {
		cancel()
	}
}

func (s *Synchronizer[T]) run(ctx context.Context, seq uint64) error {
	defer s.fetches.Done()
	items, err := s.fetch(ctx)
	return s.finish(seq, items, err)
}

func (s *Synchronizer[T]) finish(seq uint64, items []T, fetchErr error) error {
	s.mu.Lock()
	if cancel, ok := s.inFlight[seq]; ok {
		cancel()
		delete(s.inFlight, seq)
	}
	if !s.live {
		s.mu.Unlock()
		return ErrStopped
	}
	if seq <= s.applied {
		s.settle()
		s.mu.Unlock()
		return ErrSuperseded
	}
	if fetchErr != nil && errors.Is(fetchErr, context.Canceled) {
		// Cancelled by a newer refresh or by the caller: nothing to report.
		s.settle()
		s.mu.Unlock()
		return fetchErr
	}
	s.applied = seq

	if fetchErr != nil {
		s.err = fetchErr
		s.state = Failed
		listeners := slices.Clone(s.onError)
		s.mu.Unlock()

		s.logger.Printf("[sync %s] fetch failed, keeping previous snapshot: %v", s.name, fetchErr)
		for _, fn := range listeners {
			if !s.Running() {
				break
			}
			fn(fetchErr)
		}

		s.mu.Lock()
		if s.state == Failed {
			s.settle()
		}
		s.mu.Unlock()
		return fetchErr
	}

	s.err = nil
	s.state = Comparing
	if s.hasSnapshot && s.equal(s.snapshot, items) {
		s.settle()
		s.mu.Unlock()
		return nil
	}

	s.state = Committing
	if items == nil {
		items = []T{}
	}
	s.snapshot = items
	s.hasSnapshot = true
	s.version++
	s.logger.Printf("[sync %s] committed %d records (v%d)", s.name, len(items), s.version)
	s.mu.Unlock()

	s.notifyCommit()

	s.mu.Lock()
	if s.state == Committing {
		s.settle()
	}
	s.mu.Unlock()
	return nil
}

// settle leaves a transient state. Callers hold s.mu.
func (s *Synchronizer[T]) settle() {
	if len(s.inFlight) > 0 {
		s.state = Fetching
		return
	}
	s.state = Idle
}

// notifyCommit delivers the latest committed snapshot to listeners unless a
// concurrent call already delivered it.
func (s *Synchronizer[T]) notifyCommit() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !s.live || s.version <= s.notified {
		s.mu.Unlock()
		return
	}
	snapshot, version := s.snapshot, s.version
	listeners := slices.Clone(s.onCommit)
	s.mu.Unlock()

	s.notified = version
	for _, fn := range listeners {
		if !s.Running() {
			return
		}
		fn(snapshot)
	}
}

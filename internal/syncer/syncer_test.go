package syncer

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type rec struct {
	ID    int    `json:"id"`
	Title string `json:"title,omitempty"`
}

type step struct {
	items []rec
	err   error
}

// scripted replays steps in order and repeats the last one forever.
type scripted struct {
	mu    sync.Mutex
	calls int
	steps []step
}

func (f *scripted) fetch(ctx context.Context) ([]rec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.calls, len(f.steps)-1)
	f.calls++
	return f.steps[i].items, f.steps[i].err
}

func (f *scripted) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSynchronizer_EqualSnapshotsDoNotCommit(t *testing.T) {
	jobs := []rec{{ID: 1}, {ID: 2}, {ID: 3}}
	f := &scripted{steps: []step{{items: jobs}}}
	s := New(Config[rec]{Name: "jobs", Fetch: f.fetch, Interval: 5 * time.Millisecond, Logger: quiet()})

	var commits atomic.Int32
	s.OnCommit(func([]rec) { commits.Add(1) })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "several polls", func() bool { return f.count() >= 5 })
	s.Stop()

	if got := commits.Load(); got != 1 {
		t.Errorf("commits = %d, want 1", got)
	}
	if got := s.Version(); got != 1 {
		t.Errorf("Version() = %d, want 1", got)
	}
	if got := len(s.Snapshot()); got != 3 {
		t.Errorf("len(Snapshot()) = %d, want 3", got)
	}
}

func TestSynchronizer_CommitsOnChange(t *testing.T) {
	f := &scripted{steps: []step{
		{items: []rec{{ID: 1}, {ID: 2}, {ID: 3}}},
		{items: []rec{{ID: 1}, {ID: 2}, {ID: 3}}},
		{items: []rec{{ID: 1}, {ID: 3}}},
	}}
	s := New(Config[rec]{Name: "jobs", Fetch: f.fetch, Interval: 5 * time.Millisecond, Logger: quiet()})

	var mu sync.Mutex
	var seen [][]rec
	s.OnCommit(func(snapshot []rec) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snapshot)
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "deletion to be committed", func() bool { return len(s.Snapshot()) == 2 })
	waitFor(t, "a few more polls", func() bool { return f.count() >= 6 })
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("commits = %d, want 2", len(seen))
	}
	if len(seen[0]) != 3 || len(seen[1]) != 2 {
		t.Errorf("committed sizes = %d, %d; want 3, 2", len(seen[0]), len(seen[1]))
	}
}

func TestSynchronizer_ErrorKeepsSnapshotAndPollingContinues(t *testing.T) {
	boom := errors.New("backend down")
	f := &scripted{steps: []step{
		{items: []rec{{ID: 1}}},
		{err: boom},
		{items: []rec{{ID: 1}}},
	}}
	s := New(Config[rec]{Name: "courses", Fetch: f.fetch, Interval: 5 * time.Millisecond, Logger: quiet()})

	var commits, failures atomic.Int32
	s.OnCommit(func([]rec) { commits.Add(1) })
	s.OnError(func(err error) {
		if !errors.Is(err, boom) {
			t.Errorf("OnError got %v, want %v", err, boom)
		}
		failures.Add(1)
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the error and recovery polls", func() bool { return f.count() >= 4 })
	waitFor(t, "the banner to clear", func() bool { return s.Err() == nil })
	s.Stop()

	if got := failures.Load(); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
	if got := commits.Load(); got != 1 {
		t.Errorf("commits = %d, want 1 (error must not replace the snapshot)", got)
	}
	if got := s.Snapshot(); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("Snapshot() = %v, want [{1}]", got)
	}
}

func TestSynchronizer_TickSkippedWhileFetching(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]rec, error) {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []rec{{ID: 1}}, nil
	}
	s := New(Config[rec]{Name: "slow", Fetch: fetch, Interval: 2 * time.Millisecond, Logger: quiet()})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "the first fetch", func() bool { return calls.Load() == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls while in flight = %d, want 1", got)
	}
	if got := s.State(); got != Fetching {
		t.Errorf("State() = %v, want fetching", got)
	}

	close(release)
	waitFor(t, "the commit", func() bool { return s.Version() == 1 })
	s.Stop()
}

func TestSynchronizer_StopDiscardsLateResults(t *testing.T) {
	started := make(chan struct{})
	fetch := func(ctx context.Context) ([]rec, error) {
		close(started)
		<-ctx.Done()
		// The response raced the cancellation and arrived anyway.
		return []rec{{ID: 9}}, nil
	}
	s := New(Config[rec]{Name: "applicants", Fetch: fetch, Interval: time.Hour, Logger: quiet()})

	var commits atomic.Int32
	s.OnCommit(func([]rec) { commits.Add(1) })

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-started
	s.Stop()

	if s.Running() {
		t.Error("Running() = true after Stop")
	}
	if got := commits.Load(); got != 0 {
		t.Errorf("commits after Stop = %d, want 0", got)
	}
	if got := s.Version(); got != 0 {
		t.Errorf("Version() = %d, want 0", got)
	}
	if got := s.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() = %v, want empty", got)
	}
}

func TestSynchronizer_StopWaitsForListeners(t *testing.T) {
	s := New(Config[rec]{
		Name:     "jobs",
		Fetch:    func(context.Context) ([]rec, error) { return []rec{{ID: 1}}, nil },
		Interval: time.Hour,
		Logger:   quiet(),
	})

	entered := make(chan struct{})
	release := make(chan struct{})
	var late atomic.Int32
	s.OnCommit(func([]rec) {
		close(entered)
		<-release
	})
	s.OnCommit(func([]rec) { late.Add(1) })

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a commit listener was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the listener finished")
	}
	if got := late.Load(); got != 0 {
		t.Errorf("listeners run after Stop = %d, want 0", got)
	}
}

func TestSynchronizer_StopSkipsErrorListeners(t *testing.T) {
	boom := errors.New("boom")
	s := New(Config[rec]{
		Name:     "jobs",
		Fetch:    func(context.Context) ([]rec, error) { return nil, boom },
		Interval: time.Hour,
		Logger:   quiet(),
	})

	entered := make(chan struct{})
	release := make(chan struct{})
	var late atomic.Int32
	s.OnError(func(error) {
		close(entered)
		<-release
	})
	s.OnError(func(error) { late.Add(1) })

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-entered
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	s.Stop()

	if got := late.Load(); got != 0 {
		t.Errorf("error listeners run after Stop = %d, want 0", got)
	}
}

func TestSynchronizer_LatestInitiatedWins(t *testing.T) {
	intervalStarted := make(chan struct{})
	releaseStale := make(chan struct{})
	var calls atomic.Int32

	fetch := func(ctx context.Context) ([]rec, error) {
		switch calls.Add(1) {
		case 1:
			close(intervalStarted)
			<-releaseStale
			return []rec{{ID: 1, Title: "B (stale)"}}, nil
		default:
			return []rec{{ID: 1, Title: "A (fresh)"}}, nil
		}
	}
	s := New(Config[rec]{Name: "jobs", Fetch: fetch, Interval: time.Hour, Logger: quiet()})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-intervalStarted

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := s.Snapshot(); got[0].Title != "A (fresh)" {
		t.Fatalf("after Refresh snapshot = %v", got)
	}

	// The stale response lands after the fresh one was applied; Stop waits
	// for it to resolve.
	close(releaseStale)
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if got := s.Snapshot(); len(got) != 1 || got[0].Title != "A (fresh)" {
		t.Errorf("final snapshot = %v, want A", got)
	}
	if got := s.Version(); got != 1 {
		t.Errorf("Version() = %d, want 1", got)
	}
}

func TestSynchronizer_RefreshLifecycle(t *testing.T) {
	f := &scripted{steps: []step{{items: []rec{{ID: 1}}}}}
	s := New(Config[rec]{Name: "users", Fetch: f.fetch, Interval: time.Hour, Logger: quiet()})

	if err := s.Refresh(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Refresh() before Start = %v, want ErrNotStarted", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}

	if err := s.Refresh(context.Background()); err != nil && !errors.Is(err, ErrSuperseded) {
		t.Errorf("Refresh() = %v", err)
	}

	s.Stop()
	s.Stop()
	if err := s.Refresh(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Refresh() after Stop = %v, want ErrStopped", err)
	}
}

func TestSynchronizer_ParentCancelStopsLoop(t *testing.T) {
	f := &scripted{steps: []step{{items: []rec{{ID: 1}}}}}
	s := New(Config[rec]{Name: "jobs", Fetch: f.fetch, Interval: 5 * time.Millisecond, Logger: quiet()})

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first poll", func() bool { return f.count() >= 1 })
	cancel()
	waitFor(t, "loop exit", func() bool { return !s.Running() })

	s.Stop()
	n := f.count()
	time.Sleep(20 * time.Millisecond)
	if f.count() != n {
		t.Error("polling continued after parent context was cancelled")
	}
}

func TestSynchronizer_CallerCancelDoesNotRaiseBanner(t *testing.T) {
	fetch := func(ctx context.Context) ([]rec, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := New(Config[rec]{Name: "jobs", Fetch: fetch, Interval: time.Hour, Logger: quiet()})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() = %v, want context.Canceled", err)
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	s.Stop()
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{Fetching, "fetching"},
		{Comparing, "comparing"},
		{Committing, "committing"},
		{Failed, "error"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestEqualFuncs(t *testing.T) {
	a := []rec{{ID: 1, Title: "x"}, {ID: 2}}
	b := []rec{{ID: 1, Title: "y"}, {ID: 2}}

	if JSONEqual(a, b) {
		t.Error("JSONEqual() = true for differing titles")
	}
	if !JSONEqual(a, []rec{{ID: 1, Title: "x"}, {ID: 2}}) {
		t.Error("JSONEqual() = false for identical snapshots")
	}
	if JSONEqual(a, a[:1]) {
		t.Error("JSONEqual() = true for different lengths")
	}
	if !JSONEqual([]rec{}, nil) {
		t.Error("JSONEqual() = false for empty and nil snapshots")
	}

	keys := KeysEqual(func(r rec) string { return string(rune('0' + r.ID)) })
	if !keys(a, b) {
		t.Error("KeysEqual() = false for same keys")
	}
	if keys(a, []rec{{ID: 2}, {ID: 1}}) {
		t.Error("KeysEqual() = true for reordered keys")
	}
}

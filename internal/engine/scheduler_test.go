package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/miradorstack/mirador-twin/internal/models"
	"github.com/miradorstack/mirador-twin/internal/registry"
)

// sequenceAcquirer returns snapshots numbered by call order.
type sequenceAcquirer struct {
	calls atomic.Int64
}

func (a *sequenceAcquirer) Acquire(ctx context.Context, twinID string) (models.Snapshot, error) {
	n := a.calls.Add(1)
	return models.Snapshot{
		ToolWearMin:  float64(n),
		HealthStatus: models.HealthStatusNoFailure,
		CapturedAt:   time.Unix(n, 0).UTC(),
	}, nil
}

type funcAcquirer func(ctx context.Context, twinID string) (models.Snapshot, error)

func (f funcAcquirer) Acquire(ctx context.Context, twinID string) (models.Snapshot, error) {
	return f(ctx, twinID)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestSchedulerTwentyFiveCyclesKeepsLastTwenty(t *testing.T) {
	reg := registry.New(20, nil)
	twin, err := reg.Register("Lathe-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched := NewScheduler(nil, reg, &sequenceAcquirer{})

	for cycle := 0; cycle < 25; cycle++ {
		sched.dispatch(context.Background())
		sched.inflight.Wait()
	}

	recent, _ := reg.Recent(twin.ID, 20)
	if len(recent) != 20 {
		t.Fatalf("expected 20 buffered snapshots, got %d", len(recent))
	}
	for i, s := range recent {
		if int(s.ToolWearMin) != i+6 {
			t.Fatalf("position %d holds cycle %v, want %d", i, s.ToolWearMin, i+6)
		}
	}
	latest, ok, _ := reg.Latest(twin.ID)
	if !ok || latest.ToolWearMin != 25 {
		t.Fatalf("expected latest to be cycle 25, got %+v", latest)
	}
	if sched.latencies.Total() != 25 {
		t.Fatalf("expected 25 latency samples, got %d", sched.latencies.Total())
	}
}

func TestSchedulerRunTicksOnInjectedClock(t *testing.T) {
	mock := clock.NewMock()
	reg := registry.New(20, nil)
	twin, _ := reg.Register("Press-3")
	acq := &sequenceAcquirer{}

	var hookCalls atomic.Int64
	sched := NewScheduler(nil, reg, acq,
		WithClock(mock),
		WithCycleHook(func(res CycleResult) {
			if res.Twin.ID == twin.ID && res.Err == nil {
				hookCalls.Add(1)
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if acq.calls.Load() != 0 {
		t.Fatalf("no cycle may run before the first tick")
	}

	waitFor(t, func() bool {
		mock.Add(PollInterval)
		return hookCalls.Load() >= 1
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop after cancellation")
	}

	if _, ok, _ := reg.Latest(twin.ID); !ok {
		t.Fatalf("expected a buffered snapshot after a tick")
	}
}

func TestSchedulerSlowTwinDoesNotBlockOthers(t *testing.T) {
	reg := registry.New(20, nil)
	slow, _ := reg.Register("slow")
	fast, _ := reg.Register("fast")

	release := make(chan struct{})
	acq := funcAcquirer(func(ctx context.Context, twinID string) (models.Snapshot, error) {
		if twinID == slow.ID {
			<-release
		}
		return models.Snapshot{HealthStatus: models.HealthStatusNoFailure}, nil
	})
	sched := NewScheduler(nil, reg, acq)

	sched.dispatch(context.Background())
	waitFor(t, func() bool {
		_, ok, _ := reg.Latest(fast.ID)
		return ok
	})
	if _, ok, _ := reg.Latest(slow.ID); ok {
		t.Fatalf("slow twin should still be in flight")
	}

	close(release)
	sched.inflight.Wait()
	if _, ok, _ := reg.Latest(slow.ID); !ok {
		t.Fatalf("slow twin should complete once released")
	}
}

func TestSchedulerRecordsTerminalFailure(t *testing.T) {
	reg := registry.New(20, nil)
	twin, _ := reg.Register("Mill-2")
	_ = reg.RecordSuccess(twin.ID, models.Snapshot{Type: "M"})

	acq := funcAcquirer(func(ctx context.Context, twinID string) (models.Snapshot, error) {
		return models.Snapshot{}, &models.TerminalFailure{Attempts: 3, LastErr: errors.New("timeout")}
	})
	var hookErr error
	sched := NewScheduler(nil, reg, acq, WithCycleHook(func(res CycleResult) { hookErr = res.Err }))

	sched.dispatch(context.Background())
	sched.inflight.Wait()

	state, _ := reg.Failure(twin.ID)
	if state == nil {
		t.Fatalf("expected failure state to be recorded")
	}
	if recent, _ := reg.Recent(twin.ID, 20); len(recent) != 1 {
		t.Fatalf("failure must not touch the buffer, got %d entries", len(recent))
	}
	if hookErr == nil {
		t.Fatalf("expected hook to observe the failure")
	}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	reg := registry.New(20, nil)
	for _, name := range []string{"a", "b", "c", "d"} {
		_, _ = reg.Register(name)
	}

	var (
		mu        sync.Mutex
		running   int
		maxActive int
	)
	acq := funcAcquirer(func(ctx context.Context, twinID string) (models.Snapshot, error) {
		mu.Lock()
		running++
		if running > maxActive {
			maxActive = running
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return models.Snapshot{}, nil
	})
	sched := NewScheduler(nil, reg, acq, WithMaxConcurrent(2))

	sched.dispatch(context.Background())
	sched.inflight.Wait()

	if maxActive > 2 {
		t.Fatalf("expected at most 2 concurrent acquisitions, saw %d", maxActive)
	}
}

func TestSchedulerDropsCyclesInterruptedByShutdown(t *testing.T) {
	reg := registry.New(20, nil)
	twin, _ := reg.Register("Drill-9")

	started := make(chan struct{})
	acq := funcAcquirer(func(ctx context.Context, twinID string) (models.Snapshot, error) {
		close(started)
		<-ctx.Done()
		return models.Snapshot{}, &models.TerminalFailure{Attempts: 1, LastErr: ctx.Err()}
	})
	sched := NewScheduler(nil, reg, acq)

	ctx, cancel := context.WithCancel(context.Background())
	sched.dispatch(ctx)
	<-started
	cancel()
	sched.inflight.Wait()

	if state, _ := reg.Failure(twin.ID); state != nil {
		t.Fatalf("shutdown must not be recorded as a twin failure, got %v", state.Err)
	}
}

func TestSchedulerToleratesUnknownTwin(t *testing.T) {
	rec := &vanishingRecorder{twins: []models.Twin{{ID: "ghost", Name: "ghost"}}}
	called := false
	sched := NewScheduler(nil, rec, &sequenceAcquirer{}, WithCycleHook(func(CycleResult) { called = true }))

	sched.dispatch(context.Background())
	sched.inflight.Wait()

	if called {
		t.Fatalf("hooks must not run when recording fails")
	}
}

type vanishingRecorder struct {
	twins []models.Twin
}

func (v *vanishingRecorder) List() []models.Twin { return v.twins }

func (v *vanishingRecorder) RecordSuccess(id string, s models.Snapshot) error {
	return models.ErrNotFound
}

func (v *vanishingRecorder) RecordFailure(id string, failure error) error {
	return models.ErrNotFound
}

func TestRunRequiresDependencies(t *testing.T) {
	if err := NewScheduler(nil, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected configuration error")
	}
}

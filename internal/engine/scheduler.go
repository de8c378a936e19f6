package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/semaphore"

	"github.com/miradorstack/mirador-twin/internal/metrics"
	"github.com/miradorstack/mirador-twin/internal/models"
	"github.com/miradorstack/mirador-twin/internal/utils"
)

// PollInterval is the fixed cadence of poll cycles.
const PollInterval = 5 * time.Second

// latencyReportEvery controls how often the cycle p95 is logged.
const latencyReportEvery = 20

// Recorder is the registry surface the scheduler needs.
type Recorder interface {
	List() []models.Twin
	RecordSuccess(id string, s models.Snapshot) error
	RecordFailure(id string, failure error) error
}

// Acquirer produces one snapshot per poll cycle, retrying internally.
type Acquirer interface {
	Acquire(ctx context.Context, twinID string) (models.Snapshot, error)
}

// CycleResult describes a recorded poll cycle. Err is set on terminal failure.
type CycleResult struct {
	Twin     models.Twin
	Snapshot models.Snapshot
	Err      error
}

// CycleHook observes recorded poll cycles.
type CycleHook func(CycleResult)

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) SchedulerOption {
	return func(s *Scheduler) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithMaxConcurrent bounds the number of acquisitions running at once. n <= 0 means unbounded.
func WithMaxConcurrent(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.pool = semaphore.NewWeighted(int64(n))
		} else {
			s.pool = nil
		}
	}
}

// WithCycleHook registers a callback invoked after every recorded cycle.
func WithCycleHook(hook CycleHook) SchedulerOption {
	return func(s *Scheduler) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// Scheduler fans out one independent acquisition per registered twin on every tick.
type Scheduler struct {
	logger   *slog.Logger
	recorder Recorder
	acquirer Acquirer
	clock    clock.Clock
	interval time.Duration
	pool     *semaphore.Weighted
	hooks    []CycleHook

	latencies *utils.LatencyTracker
	inflight  sync.WaitGroup
}

// NewScheduler constructs a scheduler ticking every PollInterval.
func NewScheduler(logger *slog.Logger, recorder Recorder, acquirer Acquirer, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger:   logger,
		recorder: recorder,
		acquirer: acquirer,
		clock:    clock.New(),
		interval: PollInterval,

		latencies: utils.NewLatencyTracker(1024),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled, then waits for in-flight cycles to finish or abandon.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.recorder == nil || s.acquirer == nil {
		return errors.New("scheduler not configured")
	}

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()
	defer s.inflight.Wait()

	s.logger.Info("poll scheduler armed", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poll scheduler stopping")
			return nil
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

// dispatch launches one cycle per twin registered at the time of the tick.
func (s *Scheduler) dispatch(ctx context.Context) {
	twins := s.recorder.List()
	for _, twin := range twins {
		s.inflight.Add(1)
		go func(twin models.Twin) {
			defer s.inflight.Done()
			s.poll(ctx, twin)
		}(twin)
	}
}

func (s *Scheduler) poll(ctx context.Context, twin models.Twin) {
	if s.pool != nil {
		if err := s.pool.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.pool.Release(1)
	}

	start := s.clock.Now()
	snap, err := s.acquirer.Acquire(ctx, twin.ID)
	s.observeLatency(s.clock.Since(start))
	result := CycleResult{Twin: twin, Snapshot: snap, Err: err}

	var recErr error
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown interrupted the cycle; nothing to record.
			return
		}
		metrics.ObserveCycle(metrics.OutcomeFailure)
		s.logger.Warn("poll cycle failed",
			slog.String("twin_id", twin.ID),
			slog.String("twin", twin.Name),
			slog.Any("error", err),
		)
		recErr = s.recorder.RecordFailure(twin.ID, err)
	} else {
		metrics.ObserveCycle(metrics.OutcomeSuccess)
		recErr = s.recorder.RecordSuccess(twin.ID, snap)
	}

	if recErr != nil {
		if errors.Is(recErr, models.ErrNotFound) {
			s.logger.Warn("twin vanished during poll cycle", slog.String("twin_id", twin.ID))
		} else {
			s.logger.Error("record poll cycle", slog.String("twin_id", twin.ID), slog.Any("error", recErr))
		}
		return
	}

	for _, hook := range s.hooks {
		hook(result)
	}
}

func (s *Scheduler) observeLatency(d time.Duration) {
	s.latencies.Observe(d)
	if total := s.latencies.Total(); total%latencyReportEvery == 0 {
		s.logger.Info("poll cycle latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", s.latencies.Len()),
		)
	}
}

// CycleLatencyP95 returns the p95 acquisition latency over recent cycles.
func (s *Scheduler) CycleLatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

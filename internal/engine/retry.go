package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/miradorstack/mirador-twin/internal/metrics"
	"github.com/miradorstack/mirador-twin/internal/models"
)

const (
	// MaxAttempts caps fetch attempts per poll cycle.
	MaxAttempts = 3
	// RetryDelay is the fixed pause between attempts. MaxAttempts*RetryDelay stays under PollInterval.
	RetryDelay = time.Second
)

// Fetcher performs a single exchange with the telemetry source.
type Fetcher interface {
	Fetch(ctx context.Context) (models.Snapshot, error)
}

// Retrier wraps a Fetcher with a bounded-attempt, fixed-delay retry policy.
type Retrier struct {
	logger      *slog.Logger
	fetcher     Fetcher
	clock       clock.Clock
	maxAttempts int
	delay       time.Duration
}

// NewRetrier constructs the retry controller with the fixed policy.
func NewRetrier(logger *slog.Logger, fetcher Fetcher, clk clock.Clock) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Retrier{
		logger:      logger,
		fetcher:     fetcher,
		clock:       clk,
		maxAttempts: MaxAttempts,
		delay:       RetryDelay,
	}
}

// Acquire fetches a snapshot, retrying failed attempts until the budget is spent.
// On exhaustion it returns a *models.TerminalFailure wrapping the last cause.
func (r *Retrier) Acquire(ctx context.Context, twinID string) (models.Snapshot, error) {
	if r.fetcher == nil {
		return models.Snapshot{}, fmt.Errorf("fetcher not configured")
	}

	var (
		lastErr  error
		attempts int
	)
	for remaining := r.maxAttempts; remaining > 0; {
		attempts++
		start := r.clock.Now()
		snap, err := r.fetcher.Fetch(ctx)
		metrics.ObserveFetch(r.clock.Since(start), resultLabel(err))
		if err == nil {
			if attempts > 1 {
				r.logger.Debug("fetch succeeded after retry", slog.String("twin_id", twinID), slog.Int("attempt", attempts))
			}
			return snap, nil
		}

		lastErr = err
		remaining--
		r.logger.Debug("fetch attempt failed",
			slog.String("twin_id", twinID),
			slog.Int("attempt", attempts),
			slog.Int("remaining", remaining),
			slog.Any("error", err),
		)
		if remaining == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return models.Snapshot{}, &models.TerminalFailure{Attempts: attempts, LastErr: errors.Join(lastErr, ctx.Err())}
		case <-r.clock.After(r.delay):
		}
	}

	return models.Snapshot{}, &models.TerminalFailure{Attempts: attempts, LastErr: lastErr}
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	var fetchErr *models.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Kind)
	}
	return string(models.FetchKindTransport)
}

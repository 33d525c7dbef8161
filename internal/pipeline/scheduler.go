package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/cachescan/internal/config"
	"github.com/nao1215/cachescan/internal/model"
)

// Prober performs one network probe. It reports transport failures as
// *model.Failure outcomes instead of errors.
type Prober interface {
	Probe(ctx context.Context, target string) model.Outcome
}

// Guard inspects each outcome as it arrives. A non-nil error cancels the run.
type Guard func(model.Outcome) error

// ProgressFunc is called once per completed probe with the number of
// completed probes and the total. It is called from probe goroutines.
type ProgressFunc func(done, total int)

// Scheduler probes targets concurrently, holding at most a fixed number of
// probes in flight.
type Scheduler struct {
	prober      Prober
	guard       Guard
	progress    ProgressFunc
	concurrency int
	logger      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency sets the maximum number of probes in flight.
// Default is config.DefaultConcurrency.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithGuard sets the fail-fast check run on every outcome.
func WithGuard(guard Guard) SchedulerOption {
	return func(s *Scheduler) {
		s.guard = guard
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) SchedulerOption {
	return func(s *Scheduler) {
		s.progress = fn
	}
}

// WithSchedulerLogger sets a custom logger for the scheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler that probes with prober.
func NewScheduler(prober Prober, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		prober:      prober,
		concurrency: config.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run probes every target and returns the outcomes in completion order.
//
// After each probe resolves, the completed counter is incremented, the progress
// callback runs, the guard inspects the outcome, and the outcome is collected,
// in that order. When the guard fails, the group context is cancelled so no new
// probes start and in-flight requests are aborted; Run then returns the outcomes
// collected so far together with the guard's error.
func (s *Scheduler) Run(ctx context.Context, targets []string) ([]model.Outcome, error) {
	s.logger.Info("starting probes",
		"total_targets", len(targets),
		"concurrency", s.concurrency,
	)

	startTime := time.Now()
	total := len(targets)

	var (
		completed atomic.Int64
		mu        sync.Mutex
		outcomes  = make([]model.Outcome, 0, total)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, target := range targets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			out := s.prober.Probe(gctx, target)

			done := completed.Add(1)
			if s.progress != nil {
				s.progress(int(done), total)
			}

			var guardErr error
			if s.guard != nil {
				guardErr = s.guard(out)
			}

			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()

			if guardErr != nil {
				s.logger.Warn("fatal probe outcome, cancelling run",
					"target", target,
					"error", guardErr,
				)
				return guardErr
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// Targets skipped after a parent cancellation leave no error in the group.
		err = ctx.Err()
	}

	s.logger.Info("probes complete",
		"completed", completed.Load(),
		"total_targets", total,
		"elapsed", time.Since(startTime),
	)

	return outcomes, err
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/fitquest/services"
)

// ErrAlreadyRunning is returned by RunOnce while another run is in progress.
var ErrAlreadyRunning = errors.New("rollup already running")

// Runner is the work run on each trigger. *services.RollupService implements it.
type Runner interface {
	RunAll(ctx context.Context, now time.Time) (services.RollupReport, error)
}

// Schedule is a daily wall-clock trigger.
type Schedule struct {
	Hour     int
	Minute   int
	Location *time.Location
	// Timeout bounds each run; zero means no limit.
	Timeout time.Duration
}

// Scheduler triggers the rollup once a day at the scheduled time.
type Scheduler struct {
	mu       sync.RWMutex
	runner   Runner
	clock    Clock
	schedule Schedule
	logger   *zap.Logger
	running  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a daily scheduler. A nil clock uses the wall clock.
func NewScheduler(runner Runner, schedule Schedule, clock Clock, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule.Location == nil {
		schedule.Location = time.Local
	}
	return &Scheduler{runner: runner, clock: clock, schedule: schedule, logger: logger}
}

// NextRun returns the first scheduled time strictly after now.
func (s Schedule) NextRun(now time.Time) time.Time {
	local := now.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, s.Location)
	}
	return next
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		for {
			now := s.clock.Now()
			next := s.schedule.NextRun(now)
			s.logger.Info("next rollup scheduled", zap.Time("at", next))

			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(next.Sub(now)):
			}

			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("scheduled rollup ended with error", zap.Error(err))
			}
		}
	}()
}

// Stop cancels the loop and any run in progress, then waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunOnce runs the rollup now under the schedule's timeout. Runs never overlap.
func (s *Scheduler) RunOnce(ctx context.Context) (services.RollupReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return services.RollupReport{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if s.schedule.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.schedule.Timeout)
		defer cancel()
	}
	return s.runner.RunAll(ctx, s.clock.Now())
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/services"
)

type waiter struct {
	at time.Time
	ch chan time.Time
}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
	armed   chan time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, armed: make(chan time.Duration, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, waiter{at: c.now.Add(d), ch: ch})
	c.mu.Unlock()
	c.armed <- d
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

type recordingRunner struct {
	runs  chan time.Time
	block chan struct{}
}

func (r *recordingRunner) RunAll(ctx context.Context, now time.Time) (services.RollupReport, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return services.RollupReport{}, ctx.Err()
		}
	}
	r.runs <- now
	return services.RollupReport{Users: 1, Succeeded: 1}, nil
}

func TestNextRun(t *testing.T) {
	s := Schedule{Hour: 0, Minute: 5, Location: time.UTC}

	assert.Equal(t, time.Date(2025, 10, 8, 0, 5, 0, 0, time.UTC), s.NextRun(time.Date(2025, 10, 7, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 10, 7, 0, 5, 0, 0, time.UTC), s.NextRun(time.Date(2025, 10, 7, 0, 4, 0, 0, time.UTC)))
	// exactly on the trigger rolls to the next day
	assert.Equal(t, time.Date(2025, 10, 8, 0, 5, 0, 0, time.UTC), s.NextRun(time.Date(2025, 10, 7, 0, 5, 0, 0, time.UTC)))
	// month boundary
	assert.Equal(t, time.Date(2025, 11, 1, 0, 5, 0, 0, time.UTC), s.NextRun(time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)))
}

func TestNextRunInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	s := Schedule{Hour: 0, Minute: 0, Location: loc}
	next := s.NextRun(time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 10, 7, 18, 30, 0, 0, time.UTC), next.UTC())
}

func TestSchedulerFiresDaily(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 10, 7, 23, 0, 0, 0, time.UTC))
	runner := &recordingRunner{runs: make(chan time.Time, 4)}
	s := NewScheduler(runner, Schedule{Hour: 0, Minute: 5, Location: time.UTC}, clock, nil)

	s.Start(context.Background())
	defer s.Stop()

	assert.Equal(t, 65*time.Minute, <-clock.armed)
	clock.Advance(65 * time.Minute)

	select {
	case at := <-runner.runs:
		assert.Equal(t, time.Date(2025, 10, 8, 0, 5, 0, 0, time.UTC), at)
	case <-time.After(2 * time.Second):
		t.Fatal("rollup did not run")
	}

	assert.Equal(t, 24*time.Hour, <-clock.armed)
	clock.Advance(24 * time.Hour)
	select {
	case at := <-runner.runs:
		assert.Equal(t, time.Date(2025, 10, 9, 0, 5, 0, 0, time.UTC), at)
	case <-time.After(2 * time.Second):
		t.Fatal("second rollup did not run")
	}
}

func TestSchedulerDoesNotFireEarly(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 10, 7, 23, 0, 0, 0, time.UTC))
	runner := &recordingRunner{runs: make(chan time.Time, 1)}
	s := NewScheduler(runner, Schedule{Hour: 0, Minute: 5, Location: time.UTC}, clock, nil)
	s.Start(context.Background())
	defer s.Stop()

	<-clock.armed
	clock.Advance(64 * time.Minute)
	select {
	case <-runner.runs:
		t.Fatal("rollup ran before its time")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunOnceDoesNotOverlap(t *testing.T) {
	runner := &recordingRunner{runs: make(chan time.Time, 2), block: make(chan struct{})}
	s := NewScheduler(runner, Schedule{Location: time.UTC}, newFakeClock(time.Now()), nil)

	errs := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		errs <- err
	}()
	require.Eventually(t, s.Running, time.Second, 5*time.Millisecond)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(runner.block)
	require.NoError(t, <-errs)
	assert.False(t, s.Running())
}

func TestRunOnceTimeout(t *testing.T) {
	runner := &recordingRunner{runs: make(chan time.Time, 1), block: make(chan struct{})}
	s := NewScheduler(runner, Schedule{Location: time.UTC, Timeout: 20 * time.Millisecond}, newFakeClock(time.Now()), nil)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStopEndsLoop(t *testing.T) {
	clock := newFakeClock(time.Now())
	s := NewScheduler(&recordingRunner{runs: make(chan time.Time, 1)}, Schedule{Location: time.UTC}, clock, nil)
	s.Start(context.Background())
	<-clock.armed

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

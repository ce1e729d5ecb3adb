package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/recipebox/internal/clock"
	"github.com/oggyb/recipebox/internal/logger"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func waitRun(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func signal(ch chan struct{}) Job {
	return func(context.Context) error {
		ch <- struct{}{}
		return nil
	}
}

func TestScheduler_RunAtStartThenOnTick(t *testing.T) {
	fake := clock.NewFake(t0)
	s := NewScheduler(fake, logger.Discard(), nil, time.Minute)
	eager := make(chan struct{}, 4)
	lazy := make(chan struct{}, 4)
	s.Every("eager", time.Hour, true, signal(eager))
	s.Every("lazy", 2*time.Hour, false, signal(lazy))

	s.Start(context.Background())
	defer s.Stop()
	assert.Equal(t, 2, fake.Tickers())

	waitRun(t, eager)
	assert.Empty(t, lazy)

	fake.Advance(time.Hour)
	waitRun(t, eager)
	assert.Empty(t, lazy)

	fake.Advance(time.Hour)
	waitRun(t, eager)
	waitRun(t, lazy)
}

func TestScheduler_StopReleasesTickers(t *testing.T) {
	fake := clock.NewFake(t0)
	s := NewScheduler(fake, logger.Discard(), nil, time.Minute)
	s.Every("a", time.Hour, false, func(context.Context) error { return nil })
	s.Every("off", 0, true, func(context.Context) error { return nil })

	s.Start(context.Background())
	assert.Equal(t, 1, fake.Tickers())
	s.Stop()
	assert.Zero(t, fake.Tickers())

	// stopping twice is harmless
	s.Stop()
}

func TestScheduler_FailedCycleRetriesNextTick(t *testing.T) {
	fake := clock.NewFake(t0)
	s := NewScheduler(fake, logger.Discard(), nil, time.Minute)
	var calls atomic.Int32
	done := make(chan struct{}, 4)
	s.Every("flaky", time.Hour, true, func(context.Context) error {
		defer func() { done <- struct{}{} }()
		if calls.Add(1) == 1 {
			return errors.New("db down")
		}
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()
	waitRun(t, done)
	fake.Advance(time.Hour)
	waitRun(t, done)
	assert.Equal(t, int32(2), calls.Load())
}

type stubLeaser struct {
	grant    bool
	err      error
	acquired atomic.Int32
	released atomic.Int32
}

func (l *stubLeaser) AcquireLease(context.Context, string, string, time.Duration) (bool, error) {
	l.acquired.Add(1)
	return l.grant, l.err
}

func (l *stubLeaser) ReleaseLease(context.Context, string, string) error {
	l.released.Add(1)
	return nil
}

func TestScheduler_LeaseGatesCycles(t *testing.T) {
	for name, tc := range map[string]struct {
		leaser  *stubLeaser
		runs    bool
		release int32
	}{
		"granted": {leaser: &stubLeaser{grant: true}, runs: true, release: 1},
		"held":    {leaser: &stubLeaser{grant: false}},
		"error":   {leaser: &stubLeaser{err: errors.New("redis down")}},
	} {
		t.Run(name, func(t *testing.T) {
			fake := clock.NewFake(t0)
			s := NewScheduler(fake, logger.Discard(), tc.leaser, time.Minute)
			var ran atomic.Bool
			s.Every("reconcile", time.Hour, true, func(context.Context) error {
				ran.Store(true)
				return nil
			})

			s.Start(context.Background())
			require.Eventually(t, func() bool { return tc.leaser.acquired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
			s.Stop()

			assert.Equal(t, tc.runs, ran.Load())
			assert.Equal(t, tc.release, tc.leaser.released.Load())
		})
	}
}

func TestScheduler_LocalJobSkipsLease(t *testing.T) {
	fake := clock.NewFake(t0)
	leaser := &stubLeaser{grant: false}
	s := NewScheduler(fake, logger.Discard(), leaser, time.Minute)
	done := make(chan struct{}, 4)
	s.EveryLocal("prune", time.Minute, signal(done))

	s.Start(context.Background())
	defer s.Stop()
	fake.Advance(time.Minute)
	waitRun(t, done)
	assert.Zero(t, leaser.acquired.Load())
}

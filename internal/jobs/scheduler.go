// Package jobs runs the periodic maintenance work: counter reconciliation
// and the pending-account sweep.
package jobs

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/recipebox/internal/clock"
)

// Job is one cycle of work. It must be safe to repeat or skip.
type Job func(ctx context.Context) error

// Leaser grants a named lease to one holder at a time across replicas.
type Leaser interface {
	AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, name, holder string) error
}

type entry struct {
	name       string
	interval   time.Duration
	runAtStart bool
	local      bool
	job        Job
}

// Scheduler owns a set of named jobs, each on its own ticker. It is started
// and stopped by the process lifecycle; nothing runs before Start.
type Scheduler struct {
	clock    clock.Clock
	log      *slog.Logger
	leaser   Leaser
	leaseTTL time.Duration
	holder   string

	mu      sync.Mutex
	entries []entry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler builds a scheduler. A nil leaser runs every cycle locally.
func NewScheduler(clk clock.Clock, log *slog.Logger, leaser Leaser, leaseTTL time.Duration) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		clock:    clk,
		log:      log.With("component", "jobs"),
		leaser:   leaser,
		leaseTTL: leaseTTL,
		holder:   host + "/" + uuid.NewString(),
	}
}

// Every registers job under name. Must be called before Start.
func (s *Scheduler) Every(name string, interval time.Duration, runAtStart bool, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, interval: interval, runAtStart: runAtStart, job: job})
}

// EveryLocal registers a job that skips the lease; every replica runs it.
func (s *Scheduler) EveryLocal(name string, interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, interval: interval, local: true, job: job})
}

// Start launches every registered job. Tickers exist when Start returns.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, e := range s.entries {
		if e.interval <= 0 {
			s.log.Warn("job disabled, non-positive interval", "job", e.name)
			continue
		}
		t := s.clock.NewTicker(e.interval)
		s.wg.Add(1)
		go s.loop(ctx, e, t)
		s.log.Info("job scheduled", "job", e.name, "interval", e.interval.String(), "run_at_start", e.runAtStart)
	}
}

// Stop cancels running cycles and waits for every loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry, t clock.Ticker) {
	defer s.wg.Done()
	defer t.Stop()

	if e.runAtStart {
		s.run(ctx, e)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			s.run(ctx, e)
		}
	}
}

// run executes one cycle. Failures are logged; the next tick retries.
func (s *Scheduler) run(ctx context.Context, e entry) {
	log := s.log.With("job", e.name)

	if s.leaser != nil && !e.local {
		ok, err := s.leaser.AcquireLease(ctx, e.name, s.holder, s.leaseTTL)
		if err != nil {
			log.Warn("lease unavailable, skipping cycle", "err", err)
			return
		}
		if !ok {
			log.Debug("another replica holds the lease, skipping cycle")
			return
		}
		defer func() {
			if err := s.leaser.ReleaseLease(context.WithoutCancel(ctx), e.name, s.holder); err != nil {
				log.Warn("lease release failed", "err", err)
			}
		}()
	}

	start := s.clock.Now()
	if err := e.job(ctx); err != nil {
		log.Error("job failed", "err", err)
		return
	}
	log.Info("job finished", "took", s.clock.Now().Sub(start).String())
}

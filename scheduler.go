package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// PurgeJob is one unit of periodic maintenance work. Jobs report what they
// removed so the scheduler can log it.
type PurgeJob interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// PurgeJobFunc adapts a function to PurgeJob.
type PurgeJobFunc struct {
	JobName string
	Fn      func(ctx context.Context) (int64, error)
}

func (j PurgeJobFunc) Name() string { return j.JobName }

func (j PurgeJobFunc) Run(ctx context.Context) (int64, error) { return j.Fn(ctx) }

// Scheduler drives the periodic purges as a process-wide singleton task.
// A tick that fires while the previous run is still going is skipped, never
// queued; the work is idempotent so nothing is lost.
type Scheduler struct {
	interval time.Duration
	jobs     []PurgeJob
	logger   Logger

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	started bool
}

// NewScheduler builds a scheduler over the given jobs.
func NewScheduler(interval time.Duration, logger Logger, jobs ...PurgeJob) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &Scheduler{
		interval: interval,
		jobs:     jobs,
		logger:   logger,
	}
}

// NewPurgeScheduler wires the stock maintenance jobs: expired refresh
// tokens past the grace window and stale password resets.
func NewPurgeScheduler(cfg Config, repo RepositoryManager, logger Logger) *Scheduler {
	grace := cfg.GetPurgeGracePeriod()

	return NewScheduler(cfg.GetSchedulerInterval(), logger,
		PurgeJobFunc{
			JobName: "refresh_tokens.purge",
			Fn: func(ctx context.Context) (int64, error) {
				return repo.RefreshTokens().PurgeExpired(ctx, grace)
			},
		},
		PurgeJobFunc{
			JobName: "password_resets.purge",
			Fn: func(ctx context.Context) (int64, error) {
				return repo.PasswordResets().PurgeExpired(ctx)
			},
		},
	)
}

// Start launches the ticker loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx)
}

// Stop halts the ticker loop. A purge pass already in flight keeps
// running to completion on its own goroutine; the work is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// One pass on startup so a long interval does not delay the first purge.
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Each tick runs detached; a pass outliving the interval makes
			// the next tick a skip, not a queue-up.
			go s.RunOnce(ctx)
		}
	}
}

// RunOnce executes every job sequentially, unless a previous run is still
// in flight. Job failures are logged and do not stop the remaining jobs; a
// flaky store must never crash the portal.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("purge run still in flight, skipping tick")
		return false
	}
	defer s.running.Store(false)

	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return true
		}

		removed, err := job.Run(ctx)
		if err != nil {
			s.logger.Error("purge job %s failed: %v", job.Name(), err)
			continue
		}

		if removed > 0 {
			s.logger.Info("purge job %s removed %d records", job.Name(), removed)
		}
	}

	return true
}

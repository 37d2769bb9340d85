// Package scheduler fires the SLA sweep and the nudge scan on a cron
// cadence, with a run lock so multi-instance deployments still execute
// at most one sweep per tick.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultBudget bounds one job execution; well beyond worst-case run
// time, well below the daily cadence.
const DefaultBudget = 10 * time.Minute

// Job is one scheduled batch run.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron with per-job locking and an execution
// budget.
type Scheduler struct {
	cron   *cron.Cron
	lock   RunLock
	log    *slog.Logger
	budget time.Duration
}

func New(lock RunLock, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		lock:   lock,
		log:    log,
		budget: DefaultBudget,
	}
}

// Add registers a job under a standard 5-field cron spec ("0 2 * * *").
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.runLocked(name, job) })
	return err
}

func (s *Scheduler) runLocked(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.budget)
	defer cancel()

	key := "sched:" + name
	ok, err := s.lock.Acquire(ctx, key, s.budget)
	if err != nil {
		s.log.Error("scheduler: lock acquire failed", "job", name, "error", err)
		return
	}
	if !ok {
		s.log.Warn("scheduler: tick skipped, previous run still holds the lock", "job", name)
		return
	}
	defer func() {
		if err := s.lock.Release(context.Background(), key); err != nil {
			s.log.Error("scheduler: lock release failed", "job", name, "error", err)
		}
	}()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.log.Error("scheduler: job failed", "job", name, "error", err)
		return
	}
	s.log.Info("scheduler: job finished", "job", name, "took", time.Since(start))
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clubledger/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LockKey guards a reconciliation run across processes.
const LockKey = "lock:ledger:reconciliation"

// ErrRunInProgress is returned when another run holds the reconciliation lock.
var ErrRunInProgress = errors.New("reconciliation already running")

type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Locker takes a named distributed lock with a single attempt.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error)
}

type Scheduler struct {
	job    Runner
	locker Locker
	cfg    config.ReconciliationConfig
	cron   *cron.Cron
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler wires job to the daily schedule. A nil locker runs without
// cross-process exclusion.
func NewScheduler(job Runner, locker Locker, cfg config.ReconciliationConfig, log *zap.Logger) *Scheduler {
	if job == nil {
		panic("reconciliation job is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("reconciliation.scheduler")

	return &Scheduler{
		job:    job,
		locker: locker,
		cfg:    cfg,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(log))),
		),
		log: log,
	}
}

// Start registers the cron entry and, when configured, kicks off a run in
// the background right away.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	id, err := s.cron.AddFunc(s.cfg.Schedule, s.scheduledRun)
	if err != nil {
		return fmt.Errorf("invalid reconciliation schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.log.Info("reconciliation scheduled",
		zap.String("schedule", s.cfg.Schedule),
		zap.Time("next_run", s.cron.Entry(id).Next),
	)

	if s.cfg.RunOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.scheduledRun()
		}()
	}
	return nil
}

func (s *Scheduler) scheduledRun() {
	if _, err := s.RunOnce(s.ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.log.Info("reconciliation skipped, another run holds the lock")
			return
		}
		// Job already logged the details
		s.log.Error("reconciliation run failed", zap.Error(err))
	}
}

// RunOnce executes one run under the distributed lock.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	if s.locker != nil {
		unlock, acquired, err := s.locker.TryLock(ctx, LockKey, s.cfg.LockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrRunInProgress
		}
		defer func() {
			// ctx may already be cancelled here
			if err := unlock(context.Background()); err != nil {
				s.log.Warn("failed to release reconciliation lock", zap.Error(err))
			}
		}()
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.job.Run(ctx)
}

// Stop cancels in-flight runs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

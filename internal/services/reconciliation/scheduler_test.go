package reconciliation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"clubledger/internal/config"
	"clubledger/internal/repositories/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls       atomic.Int32
	started     chan struct{}
	release     chan struct{}
	sawDeadline atomic.Bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (f *fakeRunner) Run(ctx context.Context) (*Report, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		f.sawDeadline.Store(true)
	}
	f.started <- struct{}{}
	select {
	case <-f.release:
		return &Report{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func schedulerConfig() config.ReconciliationConfig {
	return config.ReconciliationConfig{
		Schedule: "0 3 * * *",
		LockTTL:  time.Minute,
		Timeout:  time.Minute,
	}
}

func newLocker(t *testing.T) (*cache.LockManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewLockManager(client), mr
}

func TestScheduler_RunOnceHoldsLock(t *testing.T) {
	ctx := context.Background()
	locker, mr := newLocker(t)
	runner := newFakeRunner()
	s := NewScheduler(runner, locker, schedulerConfig(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(ctx)
		done <- err
	}()
	<-runner.started
	assert.True(t, mr.Exists(LockKey))

	// A second process sharing the same redis is turned away
	other := NewScheduler(runner, locker, schedulerConfig(), nil)
	_, err := other.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(runner.release)
	require.NoError(t, <-done)
	assert.False(t, mr.Exists(LockKey))
	assert.Equal(t, int32(1), runner.calls.Load())
	assert.True(t, runner.sawDeadline.Load())
}

func TestScheduler_RunOnceWithoutLocker(t *testing.T) {
	runner := newFakeRunner()
	close(runner.release)
	cfg := schedulerConfig()
	cfg.Timeout = 0
	s := NewScheduler(runner, nil, cfg, nil)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.False(t, runner.sawDeadline.Load())
}

func TestScheduler_StartupRun(t *testing.T) {
	locker, _ := newLocker(t)
	runner := newFakeRunner()
	close(runner.release)
	cfg := schedulerConfig()
	cfg.RunOnStartup = true
	s := NewScheduler(runner, locker, cfg, nil)

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("startup run did not happen")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestScheduler_StopCancelsRun(t *testing.T) {
	runner := newFakeRunner()
	cfg := schedulerConfig()
	cfg.RunOnStartup = true
	s := NewScheduler(runner, nil, cfg, nil)

	require.NoError(t, s.Start(context.Background()))
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	cfg := schedulerConfig()
	cfg.Schedule = "every day at three"
	s := NewScheduler(newFakeRunner(), nil, cfg, nil)

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid reconciliation schedule")
}

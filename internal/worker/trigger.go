package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/forgespace/notify/internal/domain"
	"github.com/forgespace/notify/internal/lock"
)

// Run results reported to TriggerHooks.OnRun.
const (
	RunOK      = "ok"
	RunError   = "error"
	RunSkipped = "skipped"
)

// LockKey names the Redis lease shared by every instance.
const LockKey = "notify:process-pending-jobs"

// Runner is the batch entry point the trigger drives.
type Runner interface {
	ProcessPendingJobs(ctx context.Context) (Report, error)
}

// StatsSource reports job counts per status after each run.
type StatsSource interface {
	Stats(ctx context.Context) (domain.StatusCounts, error)
}

// TriggerHooks carries the metric callbacks injected by main.
type TriggerHooks struct {
	OnRun   func(result string, selected int)
	OnStats func(domain.StatusCounts)
}

// Trigger runs the processor under the run lock, either on a ticker or on
// demand from the HTTP endpoint.
type Trigger struct {
	runner   Runner
	stats    StatsSource
	locker   lock.Locker
	lockTTL  time.Duration
	interval time.Duration
	logger   *zap.Logger
	hooks    TriggerHooks
}

func NewTrigger(
	runner Runner,
	stats StatsSource,
	locker lock.Locker,
	lockTTL time.Duration,
	interval time.Duration,
	logger *zap.Logger,
	hooks TriggerHooks,
) *Trigger {
	if locker == nil {
		locker = lock.Nop{}
	}
	if hooks.OnRun == nil {
		hooks.OnRun = func(string, int) {}
	}
	if hooks.OnStats == nil {
		hooks.OnStats = func(domain.StatusCounts) {}
	}
	return &Trigger{
		runner: runner, stats: stats, locker: locker, lockTTL: lockTTL,
		interval: interval, logger: logger, hooks: hooks,
	}
}

// Run ticks every interval and processes due jobs.
// Stops cleanly when ctx is cancelled.
func (t *Trigger) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("processor trigger started", zap.Duration("interval", t.interval))

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("processor trigger stopping")
			return
		case <-ticker.C:
			if _, _, err := t.RunOnce(ctx); err != nil {
				t.logger.Error("process pending jobs", zap.Error(err))
			}
		}
	}
}

// RunOnce takes the run lock and processes one batch. ran is false when
// another instance holds the lock. Once the lock is held the batch runs
// detached from ctx, so a shutdown or a disconnected HTTP caller cannot
// leave claimed jobs in processing.
func (t *Trigger) RunOnce(ctx context.Context) (report Report, ran bool, err error) {
	release, ok, err := t.locker.Acquire(ctx, LockKey, t.lockTTL)
	if err != nil {
		t.hooks.OnRun(RunError, 0)
		return Report{}, false, err
	}
	if !ok {
		t.logger.Debug("processor run skipped, lock held elsewhere")
		t.hooks.OnRun(RunSkipped, 0)
		return Report{}, false, nil
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := release(rctx); rerr != nil {
			t.logger.Warn("failed to release run lock", zap.Error(rerr))
		}
	}()

	report, err = t.runner.ProcessPendingJobs(context.WithoutCancel(ctx))
	if err != nil {
		t.hooks.OnRun(RunError, 0)
		return report, true, err
	}
	t.hooks.OnRun(RunOK, report.Selected)
	t.refreshStats(context.WithoutCancel(ctx))
	return report, true, nil
}

func (t *Trigger) refreshStats(ctx context.Context) {
	if t.stats == nil {
		return
	}
	c, err := t.stats.Stats(ctx)
	if err != nil {
		t.logger.Warn("failed to refresh job stats", zap.Error(err))
		return
	}
	t.hooks.OnStats(c)
}

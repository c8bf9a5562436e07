package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgespace/notify/internal/clock"
	"github.com/forgespace/notify/internal/domain"
	"github.com/forgespace/notify/internal/lock"
	"github.com/forgespace/notify/internal/repository"
	"github.com/forgespace/notify/internal/sender"
	"github.com/forgespace/notify/internal/worker"
)

type runnerFunc func(context.Context) (worker.Report, error)

func (f runnerFunc) ProcessPendingJobs(ctx context.Context) (worker.Report, error) { return f(ctx) }

type statsFunc func() domain.StatusCounts

func (f statsFunc) Stats(context.Context) (domain.StatusCounts, error) { return f(), nil }

// heldLocker refuses or grants every lease and counts releases.
type heldLocker struct {
	held     bool
	err      error
	released int
}

func (l *heldLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error { l.released++; return nil }, true, nil
}

type runLog struct {
	results []string
	stats   []domain.StatusCounts
}

func (r *runLog) hooks() worker.TriggerHooks {
	return worker.TriggerHooks{
		OnRun:   func(result string, _ int) { r.results = append(r.results, result) },
		OnStats: func(c domain.StatusCounts) { r.stats = append(r.stats, c) },
	}
}

func TestTrigger_RunOnce(t *testing.T) {
	calls := 0
	runner := runnerFunc(func(context.Context) (worker.Report, error) {
		calls++
		return worker.Report{Selected: 2, Completed: 2}, nil
	})
	l := &heldLocker{}
	var log runLog
	tr := worker.NewTrigger(runner, statsFunc(func() domain.StatusCounts {
		return domain.StatusCounts{Completed: 2}
	}), l, time.Minute, time.Minute, zap.NewNop(), log.hooks())

	r, ran, err := tr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, r.Completed)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, l.released)
	assert.Equal(t, []string{worker.RunOK}, log.results)
	assert.Equal(t, []domain.StatusCounts{{Completed: 2}}, log.stats)
}

func TestTrigger_RunOnce_LockHeld(t *testing.T) {
	runner := runnerFunc(func(context.Context) (worker.Report, error) {
		t.Fatal("processor must not run while the lock is held elsewhere")
		return worker.Report{}, nil
	})
	var log runLog
	tr := worker.NewTrigger(runner, nil, &heldLocker{held: true}, time.Minute, time.Minute, zap.NewNop(), log.hooks())

	_, ran, err := tr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, []string{worker.RunSkipped}, log.results)
}

func TestTrigger_RunOnce_Errors(t *testing.T) {
	t.Run("lock", func(t *testing.T) {
		var log runLog
		tr := worker.NewTrigger(runnerFunc(func(context.Context) (worker.Report, error) {
			return worker.Report{}, nil
		}), nil, &heldLocker{err: errors.New("redis down")}, time.Minute, time.Minute, zap.NewNop(), log.hooks())

		_, ran, err := tr.RunOnce(context.Background())
		require.Error(t, err)
		assert.False(t, ran)
		assert.Equal(t, []string{worker.RunError}, log.results)
	})

	t.Run("processor", func(t *testing.T) {
		var log runLog
		l := &heldLocker{}
		tr := worker.NewTrigger(runnerFunc(func(context.Context) (worker.Report, error) {
			return worker.Report{}, errors.New("select failed")
		}), nil, l, time.Minute, time.Minute, zap.NewNop(), log.hooks())

		_, ran, err := tr.RunOnce(context.Background())
		require.Error(t, err)
		assert.True(t, ran)
		assert.Equal(t, 1, l.released, "lock must be released after a failed run")
		assert.Equal(t, []string{worker.RunError}, log.results)
		assert.Empty(t, log.stats)
	})
}

func TestTrigger_RunStopsOnCancel(t *testing.T) {
	ran := make(chan struct{}, 1)
	tr := worker.NewTrigger(runnerFunc(func(context.Context) (worker.Report, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return worker.Report{}, nil
	}), nil, nil, time.Minute, 5*time.Millisecond, zap.NewNop(), worker.TriggerHooks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never ran the processor")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not stop after cancel")
	}
}

func TestTrigger_RunOnce_CallerGoneMidSend(t *testing.T) {
	mock := repository.NewMockJobRepository()
	started := make(chan struct{})
	release := make(chan struct{})
	d := dispatcherFunc(func(ctx context.Context, _ *domain.Job) sender.Result {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return sender.Result{Error: "send request: " + err.Error()}
		}
		return sender.Result{Success: true, MessageID: "re_123"}
	})
	p := worker.NewProcessor(ctxRepo{mock}, d, clock.NewFixed(t0), zap.NewNop(), worker.MetricHooks{})
	tr := worker.NewTrigger(p, nil, lock.Nop{}, time.Minute, time.Minute, zap.NewNop(), worker.TriggerHooks{})

	j := seed(t, mock, domain.JobWelcome, `{"userName":"Ada"}`, t0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var report worker.Report
	go func() {
		defer close(done)
		report, _, _ = tr.RunOnce(ctx)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never started")
	}
	cancel()
	close(release)
	<-done

	assert.Equal(t, 1, report.Completed)
	got := get(t, mock, j.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Zero(t, got.Attempts, "a disconnected caller must not burn an attempt")

	counts, err := mock.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Processing)
}

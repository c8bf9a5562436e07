// Package worker drains the notification job table. Processor runs one
// batch; Trigger calls it on a fixed interval.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/forgespace/notify/internal/clock"
	"github.com/forgespace/notify/internal/domain"
	"github.com/forgespace/notify/internal/repository"
	"github.com/forgespace/notify/internal/sender"
)

// Dispatcher sends one job. *sender.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *domain.Job) sender.Result
}

// MetricHooks carries the metric callbacks injected by main.
// next is the status the job was left in: completed, pending (retry) or failed.
type MetricHooks struct {
	OnOutcome func(t domain.JobType, next domain.Status, latency time.Duration)
}

// Outcome records what happened to one selected job.
type Outcome struct {
	JobID    string         `json:"job_id"`
	Type     domain.JobType `json:"type"`
	Status   domain.Status  `json:"status"`
	Attempts int            `json:"attempts"`
	Skipped  bool           `json:"skipped,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Report summarizes one ProcessPendingJobs run.
type Report struct {
	Selected  int       `json:"selected"`
	Claimed   int       `json:"claimed"`
	Completed int       `json:"completed"`
	Retried   int       `json:"retried"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Processor claims due jobs and records the result of dispatching them.
type Processor struct {
	repo       repository.JobRepository
	dispatcher Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
	hooks      MetricHooks
}

func NewProcessor(
	repo repository.JobRepository,
	dispatcher Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
	hooks MetricHooks,
) *Processor {
	if hooks.OnOutcome == nil {
		hooks.OnOutcome = func(domain.JobType, domain.Status, time.Duration) {}
	}
	return &Processor{repo: repo, dispatcher: dispatcher, clock: clk, logger: logger, hooks: hooks}
}

// ProcessPendingJobs selects up to domain.BatchSize due jobs, oldest first,
// and processes them concurrently. It returns once every outcome has been
// written. A failing job never fails the run; only the initial selection
// can return an error.
func (p *Processor) ProcessPendingJobs(ctx context.Context) (Report, error) {
	jobs, err := p.repo.FindDue(ctx, p.clock.Now(), domain.BatchSize)
	if err != nil {
		return Report{}, errors.Wrap(err, "select due jobs")
	}

	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			outcomes[i] = p.process(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	r := Report{Selected: len(jobs), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Skipped {
			r.Skipped++
			continue
		}
		r.Claimed++
		switch o.Status {
		case domain.StatusCompleted:
			r.Completed++
		case domain.StatusPending:
			r.Retried++
		case domain.StatusFailed:
			r.Failed++
		}
	}

	if r.Selected > 0 {
		p.logger.Info("processed pending jobs",
			zap.Int("selected", r.Selected),
			zap.Int("completed", r.Completed),
			zap.Int("retried", r.Retried),
			zap.Int("failed", r.Failed),
			zap.Int("skipped", r.Skipped),
		)
	}
	return r, nil
}

func (p *Processor) process(ctx context.Context, selected *domain.Job) Outcome {
	log := p.logger.With(
		zap.String("job_id", selected.ID),
		zap.String("type", string(selected.Type)),
	)
	out := Outcome{JobID: selected.ID, Type: selected.Type, Status: selected.Status, Attempts: selected.Attempts}

	// Another run may have taken the job between selection and now.
	j, err := p.repo.Claim(ctx, selected.ID, p.clock.Now())
	if err != nil {
		out.Skipped = true
		if !errors.Is(err, domain.ErrAlreadyClaimed) {
			out.Error = err.Error()
			log.Error("failed to claim job", zap.Error(err))
		}
		return out
	}

	start := time.Now()
	res := p.dispatch(ctx, j)
	elapsed := time.Since(start)
	now := p.clock.Now()

	// A claimed row must leave processing even if ctx ended during the send.
	wctx := context.WithoutCancel(ctx)

	if res.Success {
		out.Status = domain.StatusCompleted
		if err := p.repo.MarkCompleted(wctx, j.ID, res.MessageID, now); err != nil {
			log.Error("failed to mark job completed", zap.Error(err))
			out.Error = err.Error()
		}
		p.hooks.OnOutcome(j.Type, out.Status, elapsed)
		log.Info("notification sent",
			zap.String("provider_msg_id", res.MessageID),
			zap.Duration("latency", elapsed),
		)
		return out
	}

	reason := res.Error
	if reason == "" {
		reason = "send failed"
	}
	out.Error = reason
	out.Attempts = j.Attempts + 1

	if out.Attempts < j.MaxAttempts {
		out.Status = domain.StatusPending
		next := now.Add(domain.RetryDelay)
		if err := p.repo.ScheduleRetry(wctx, j.ID, out.Attempts, next, reason, now); err != nil {
			log.Error("failed to schedule retry", zap.Error(err))
		}
		log.Warn("notification send failed, retry scheduled",
			zap.String("error", reason),
			zap.Int("attempts", out.Attempts),
			zap.Time("next_attempt", next),
		)
	} else {
		out.Status = domain.StatusFailed
		if err := p.repo.MarkFailed(wctx, j.ID, out.Attempts, reason, now); err != nil {
			log.Error("failed to mark job failed", zap.Error(err))
		}
		log.Error("notification permanently failed",
			zap.String("error", reason),
			zap.Int("attempts", out.Attempts),
		)
	}
	p.hooks.OnOutcome(j.Type, out.Status, elapsed)
	return out
}

// dispatch turns a panic inside a sender into an ordinary failure.
func (p *Processor) dispatch(ctx context.Context, j *domain.Job) (res sender.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = sender.Result{Error: fmt.Sprintf("panic during dispatch: %v", r)}
		}
	}()
	return p.dispatcher.Dispatch(ctx, j)
}

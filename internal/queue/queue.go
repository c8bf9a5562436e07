// Package queue is the producer-facing side of the notification job table.
package queue

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/forgespace/notify/internal/clock"
	"github.com/forgespace/notify/internal/domain"
	"github.com/forgespace/notify/internal/repository"
)

// Hooks carries optional callbacks injected by main (metrics).
type Hooks struct {
	OnEnqueued func(domain.JobType)
}

// Queue persists new jobs and answers status queries. It never dispatches.
type Queue struct {
	repo   repository.JobRepository
	clock  clock.Clock
	logger *zap.Logger
	hooks  Hooks
}

func New(repo repository.JobRepository, clk clock.Clock, logger *zap.Logger, hooks Hooks) *Queue {
	if hooks.OnEnqueued == nil {
		hooks.OnEnqueued = func(domain.JobType) {}
	}
	return &Queue{repo: repo, clock: clk, logger: logger, hooks: hooks}
}

// AddJob inserts job as pending with zero attempts and returns its id.
// The job becomes eligible at job.ScheduledFor, or immediately when nil.
func (q *Queue) AddJob(ctx context.Context, job domain.NewJob) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	j, err := q.repo.Insert(ctx, job, q.clock.Now())
	if err != nil {
		q.logger.Error("failed to enqueue notification job",
			zap.String("type", string(job.Type)),
			zap.String("recipient", job.RecipientEmail),
			zap.Error(err),
		)
		return "", errors.Wrap(err, "enqueue notification job")
	}

	q.hooks.OnEnqueued(j.Type)
	q.logger.Debug("notification job enqueued",
		zap.String("job_id", j.ID),
		zap.String("type", string(j.Type)),
	)
	return j.ID, nil
}

// Get returns the current state of one job.
func (q *Queue) Get(ctx context.Context, id string) (*domain.Job, error) {
	return q.repo.GetByID(ctx, id)
}

// List returns a page of jobs, newest first, and the total match count.
func (q *Queue) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Job, int, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, domain.ErrInvalidStatus
	}
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, 0, domain.ErrInvalidJobType
	}
	return q.repo.List(ctx, filter)
}

// Stats counts jobs per status.
func (q *Queue) Stats(ctx context.Context) (domain.StatusCounts, error) {
	return q.repo.CountByStatus(ctx)
}

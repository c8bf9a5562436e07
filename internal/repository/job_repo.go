package repository

import (
	"context"
	"time"

	"github.com/forgespace/notify/internal/domain"
)

// JobRepository defines all persistence operations for notification jobs.
// The pgx implementation is in pg_job_repo.go.
// Tests use a hand-written in-memory double (mock_job_repo.go).
//
// Only the processor calls the state-transition methods (Claim, MarkCompleted,
// ScheduleRetry, MarkFailed); producers only Insert.
type JobRepository interface {
	Insert(ctx context.Context, job domain.NewJob, now time.Time) (*domain.Job, error)
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Job, int, error)
	CountByStatus(ctx context.Context) (domain.StatusCounts, error)

	// FindDue returns up to limit pending jobs whose scheduled_for is not
	// after now, oldest created first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error)

	// Claim atomically moves a due job from pending to processing and returns
	// the claimed row. It returns domain.ErrAlreadyClaimed when the job is no
	// longer pending or no longer due.
	Claim(ctx context.Context, id string, now time.Time) (*domain.Job, error)

	MarkCompleted(ctx context.Context, id, providerMsgID string, at time.Time) error
	ScheduleRetry(ctx context.Context, id string, attempts int, next time.Time, errMsg string, at time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, errMsg string, at time.Time) error
}

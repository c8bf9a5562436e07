package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgespace/notify/internal/domain"
)

const jobColumns = `
	id, type, recipient_email, data, status, attempts, max_attempts,
	scheduled_for, error_message, provider_message_id, completed_at,
	created_at, updated_at`

type pgJobRepository struct {
	pool *pgxpool.Pool
}

// NewPgJobRepository returns a JobRepository backed by PostgreSQL.
func NewPgJobRepository(pool *pgxpool.Pool) JobRepository {
	return &pgJobRepository{pool: pool}
}

func (r *pgJobRepository) Insert(ctx context.Context, job domain.NewJob, now time.Time) (*domain.Job, error) {
	scheduledFor := now
	if job.ScheduledFor != nil {
		scheduledFor = job.ScheduledFor.UTC()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notification_jobs
			(type, recipient_email, data, status, attempts, max_attempts,
			 scheduled_for, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', 0, $4, $5, $6, $6)
		RETURNING`+jobColumns,
		job.Type, job.RecipientEmail, []byte(job.Data), domain.MaxAttempts, scheduledFor, now,
	)

	j, err := scanJob(row)
	if err != nil {
		return nil, classify(err, "insert notification job")
	}
	return j, nil
}

func (r *pgJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+jobColumns+` FROM notification_jobs WHERE id = $1`, id)

	j, err := scanJob(row)
	if err != nil {
		return nil, classify(err, "get notification job")
	}
	return j, nil
}

func (r *pgJobRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Job, int, error) {
	where, args := buildListWhere(f)
	offset := f.Offset()

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notification_jobs"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count notification jobs")
	}

	args = append(args, f.Limit, offset)
	query := fmt.Sprintf(`SELECT`+jobColumns+`
		FROM notification_jobs%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list notification jobs")
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	return jobs, total, err
}

func (r *pgJobRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	var c domain.StatusCounts
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM notification_jobs GROUP BY status`)
	if err != nil {
		return c, errors.Wrap(err, "count jobs by status")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status domain.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return c, errors.Wrap(err, "scan status count")
		}
		switch status {
		case domain.StatusPending:
			c.Pending = n
		case domain.StatusProcessing:
			c.Processing = n
		case domain.StatusCompleted:
			c.Completed = n
		case domain.StatusFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}

func (r *pgJobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+jobColumns+`
		FROM notification_jobs
		WHERE status = 'pending'
		  AND scheduled_for <= $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "find due jobs")
	}
	defer rows.Close()
	return scanJobs(rows)
}

// Claim is the compare-and-swap that keeps overlapping processor runs from
// dispatching the same attempt twice: only one UPDATE can match the
// pending row.
func (r *pgJobRepository) Claim(ctx context.Context, id string, now time.Time) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notification_jobs
		SET status = 'processing', updated_at = $2
		WHERE id = $1
		  AND status = 'pending'
		  AND scheduled_for <= $2
		RETURNING`+jobColumns, id, now)

	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAlreadyClaimed
	}
	if err != nil {
		return nil, classify(err, "claim notification job")
	}
	return j, nil
}

func (r *pgJobRepository) MarkCompleted(ctx context.Context, id, providerMsgID string, at time.Time) error {
	var msgID *string
	if providerMsgID != "" {
		msgID = &providerMsgID
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'completed', provider_message_id = $2, completed_at = $3,
		    error_message = NULL, updated_at = $3
		WHERE id = $1 AND status = 'processing'`, id, msgID, at)
	return affectedOne(tag, err, "mark job completed")
}

func (r *pgJobRepository) ScheduleRetry(ctx context.Context, id string, attempts int, next time.Time, errMsg string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'pending', attempts = $2, scheduled_for = $3,
		    error_message = $4, updated_at = $5
		WHERE id = $1 AND status = 'processing'`, id, attempts, next, errMsg, at)
	return affectedOne(tag, err, "schedule job retry")
}

func (r *pgJobRepository) MarkFailed(ctx context.Context, id string, attempts int, errMsg string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'failed', attempts = $2, error_message = $3, updated_at = $4
		WHERE id = $1 AND status = 'processing'`, id, attempts, errMsg, at)
	return affectedOne(tag, err, "mark job failed")
}

// ---- helpers ----

func affectedOne(tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return classify(err, op)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(domain.ErrNotFound, op)
	}
	return nil
}

// classify maps PostgreSQL errors onto domain sentinels.
func classify(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.InvalidTextRepresentation:
			// malformed UUID in a lookup
			return domain.ErrNotFound
		case pgErr.Code == pgerrcode.CheckViolation && pgErr.ConstraintName == "notification_jobs_type_check":
			return domain.ErrInvalidJobType
		case pgErr.Code == pgerrcode.CheckViolation && pgErr.ConstraintName == "notification_jobs_status_check":
			return domain.ErrInvalidStatus
		}
	}
	return errors.Wrap(err, op)
}

// scanJob reads a single job row from any pgx row type.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		j    domain.Job
		data []byte
	)
	err := row.Scan(
		&j.ID, &j.Type, &j.RecipientEmail, &data, &j.Status,
		&j.Attempts, &j.MaxAttempts, &j.ScheduledFor,
		&j.ErrorMessage, &j.ProviderMsgID, &j.CompletedAt,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Data = data
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*domain.Job, error) {
	var result []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan notification job")
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Type != nil {
		add("type = $%d", *f.Type)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/forgespace/notify/internal/api/middleware"
	"github.com/forgespace/notify/internal/domain"
)

// JobQueue is the queue surface the job endpoints use.
type JobQueue interface {
	AddJob(ctx context.Context, job domain.NewJob) (string, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Job, int, error)
}

// JobHandler handles raw job enqueue and status queries.
type JobHandler struct {
	q      JobQueue
	logger *zap.Logger
}

func NewJobHandler(q JobQueue, logger *zap.Logger) *JobHandler {
	return &JobHandler{q: q, logger: logger}
}

// Create handles POST /api/v1/jobs
//
// Only the envelope is checked here. A payload that does not match its type
// is accepted and fails at send time.
//
// @Summary  Enqueue a notification job
// @Tags     jobs
// @Accept   json
// @Produce  json
// @Param    body  body      domain.NewJob  true  "Job envelope"
// @Success  201   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/jobs [post]
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.NewJob
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.q.AddJob(r.Context(), req)
	if err != nil {
		h.logger.Warn("enqueue job failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetByID handles GET /api/v1/jobs/{id}
//
// @Summary  Get a job by ID
// @Tags     jobs
// @Produce  json
// @Param    id   path      string  true  "Job UUID"
// @Success  200  {object}  domain.Job
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/jobs/{id} [get]
func (h *JobHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	j, err := h.q.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, j)
}

// List handles GET /api/v1/jobs
//
// @Summary  List jobs with filtering and pagination
// @Tags     jobs
// @Produce  json
// @Param    status  query     string  false  "Filter by status"
// @Param    type    query     string  false  "Filter by job type"
// @Param    page    query     int     false  "Page number (default 1)"
// @Param    limit   query     int     false  "Items per page (default 20, max 100)"
// @Success  200     {object}  map[string]any
// @Router   /api/v1/jobs [get]
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	jobs, total, err := h.q.List(r.Context(), filter)
	if err != nil {
		mapError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  jobs,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = min(p, domain.MaxPage)
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.Status(s)
		filter.Status = &st
	}
	if t := q.Get("type"); t != "" {
		jt := domain.JobType(t)
		filter.Type = &jt
	}
	return filter
}

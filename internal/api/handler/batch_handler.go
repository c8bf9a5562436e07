package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/forgespace/notify/internal/api/middleware"
	"github.com/forgespace/notify/internal/worker"
)

// BatchRunner runs one processor batch under the run lock.
// *worker.Trigger satisfies it.
type BatchRunner interface {
	RunOnce(ctx context.Context) (worker.Report, bool, error)
}

// BatchHandler exposes the processor to an external cron.
type BatchHandler struct {
	runner BatchRunner
	logger *zap.Logger
}

func NewBatchHandler(runner BatchRunner, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{runner: runner, logger: logger}
}

// Process handles POST /api/v1/jobs/process
//
// @Summary  Process one batch of due jobs
// @Tags     jobs
// @Produce  json
// @Success  200  {object}  worker.Report
// @Success  202  {object}  map[string]string  "Another instance holds the run lock"
// @Failure  500  {object}  map[string]string
// @Router   /api/v1/jobs/process [post]
func (h *BatchHandler) Process(w http.ResponseWriter, r *http.Request) {
	report, ran, err := h.runner.RunOnce(r.Context())
	if err != nil {
		h.logger.Error("process pending jobs failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to process pending jobs")
		return
	}
	if !ran {
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "skipped"})
		return
	}
	if report.Outcomes == nil {
		report.Outcomes = []worker.Outcome{}
	}
	respondJSON(w, http.StatusOK, report)
}

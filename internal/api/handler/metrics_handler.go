package handler

import (
	"context"
	"net/http"

	"github.com/forgespace/notify/internal/domain"
)

// StatsReader counts jobs per status.
type StatsReader interface {
	Stats(ctx context.Context) (domain.StatusCounts, error)
}

// MetricsHandler serves a human-readable JSON snapshot of the job table.
// Raw Prometheus metrics are served separately at /metrics.
type MetricsHandler struct {
	stats StatsReader
}

func NewMetricsHandler(stats StatsReader) *MetricsHandler {
	return &MetricsHandler{stats: stats}
}

// GetStats handles GET /api/v1/jobs/stats
//
// @Summary  Job counts per status
// @Tags     jobs
// @Produce  json
// @Success  200  {object}  map[string]int
// @Router   /api/v1/jobs/stats [get]
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	c, err := h.stats.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read job stats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		string(domain.StatusPending):    c.Pending,
		string(domain.StatusProcessing): c.Processing,
		string(domain.StatusCompleted):  c.Completed,
		string(domain.StatusFailed):     c.Failed,
		"total":                         c.Total(),
	})
}

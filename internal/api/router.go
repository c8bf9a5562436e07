package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/forgespace/notify/internal/api/handler"
	apimw "github.com/forgespace/notify/internal/api/middleware"
	"github.com/forgespace/notify/internal/queue"
	"github.com/forgespace/notify/internal/service"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Queue         *queue.Queue
	Service       *service.NotificationService
	Runner        handler.BatchRunner
	DB            handler.Pinger
	Gatherer      prometheus.Gatherer
	AuthJWTSecret string
	Logger        *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(d.Logger))

	// --- handler instances ---
	jh := handler.NewJobHandler(d.Queue, d.Logger)
	eh := handler.NewEventHandler(d.Service, d.Logger)
	bh := handler.NewBatchHandler(d.Runner, d.Logger)
	mh := handler.NewMetricsHandler(d.Queue)
	hh := handler.NewHealthHandler(d.DB)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.Auth(d.AuthJWTSecret, d.Logger))

		// Literal segments before /{id} so "stats" is never read as an id.
		r.Get("/jobs/stats", mh.GetStats)
		r.Post("/jobs/process", bh.Process)
		r.Post("/jobs", jh.Create)
		r.Get("/jobs", jh.List)
		r.Get("/jobs/{id}", jh.GetByID)

		r.Post("/events/workspace-invite", eh.WorkspaceInvite)
		r.Post("/events/welcome", eh.Welcome)
		r.Post("/events/idea", eh.Idea)
	})

	return r
}

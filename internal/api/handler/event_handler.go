package handler

import (
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/forgespace/notify/internal/api/middleware"
	"github.com/forgespace/notify/internal/domain"
	"github.com/forgespace/notify/internal/service"
)

// EventHandler accepts domain events from the app backend and turns them
// into jobs. Delivery is asynchronous; a 202 only means the jobs are stored.
type EventHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewEventHandler(svc *service.NotificationService, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

type inviteRequest struct {
	Email string `json:"email"`
	domain.InvitePayload
}

type welcomeRequest struct {
	Email string `json:"email"`
	domain.WelcomePayload
}

type ideaRequest struct {
	Type       domain.JobType `json:"type"`
	Recipients []string       `json:"recipients"`
	ActorEmail string         `json:"actorEmail"`
	domain.IdeaEventPayload
}

// WorkspaceInvite handles POST /api/v1/events/workspace-invite
//
// @Summary  Notify an invited workspace member
// @Tags     events
// @Accept   json
// @Produce  json
// @Success  202  {object}  map[string]string
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/events/workspace-invite [post]
func (h *EventHandler) WorkspaceInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.InvitePayload.Validate(); err != nil {
		mapError(w, err)
		return
	}

	id, err := h.svc.NotifyWorkspaceInvite(r.Context(), req.Email, req.InvitePayload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// Welcome handles POST /api/v1/events/welcome
//
// @Summary  Send the welcome email to a new user
// @Tags     events
// @Accept   json
// @Produce  json
// @Success  202  {object}  map[string]string
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/events/welcome [post]
func (h *EventHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	var req welcomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.WelcomePayload.Validate(); err != nil {
		mapError(w, err)
		return
	}

	id, err := h.svc.NotifyWelcome(r.Context(), req.Email, req.WelcomePayload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// Idea handles POST /api/v1/events/idea
//
// @Summary  Fan an idea event out to workspace members
// @Tags     events
// @Accept   json
// @Produce  json
// @Success  202  {object}  map[string][]string
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/events/idea [post]
func (h *EventHandler) Idea(w http.ResponseWriter, r *http.Request) {
	var req ideaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Type.IsIdeaEvent() {
		mapError(w, domain.ErrInvalidJobType)
		return
	}
	if err := req.IdeaEventPayload.Validate(req.Type); err != nil {
		mapError(w, err)
		return
	}

	ids, err := h.svc.NotifyIdeaEvent(r.Context(), req.Type, req.IdeaEventPayload, req.Recipients, req.ActorEmail)
	if err != nil && len(ids) == 0 {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		h.logger.Warn("idea event partially enqueued",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Int("enqueued", len(ids)),
			zap.Error(err),
		)
	}
	respondJSON(w, http.StatusAccepted, map[string][]string{"ids": ids})
}

func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("event not enqueued",
		zap.String("path", r.URL.Path),
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		zap.Error(err),
	)
	mapError(w, err)
}

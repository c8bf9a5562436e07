// Package service turns domain events into notification jobs.
package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/forgespace/notify/internal/domain"
)

// Enqueuer is the slice of the queue the producer needs.
type Enqueuer interface {
	AddJob(ctx context.Context, job domain.NewJob) (string, error)
}

// NotificationService builds typed payloads and enqueues one job per
// recipient. Delivery happens later in the processor; callers only learn
// whether the enqueue itself succeeded.
type NotificationService struct {
	q      Enqueuer
	logger *zap.Logger
}

func NewNotificationService(q Enqueuer, logger *zap.Logger) *NotificationService {
	return &NotificationService{q: q, logger: logger}
}

// NotifyWorkspaceInvite enqueues an invite email for the invited address.
func (s *NotificationService) NotifyWorkspaceInvite(ctx context.Context, to string, p domain.InvitePayload) (string, error) {
	return s.enqueue(ctx, domain.JobWorkspaceInvite, to, p)
}

// NotifyWelcome enqueues the welcome email sent after sign-up.
func (s *NotificationService) NotifyWelcome(ctx context.Context, to string, p domain.WelcomePayload) (string, error) {
	return s.enqueue(ctx, domain.JobWelcome, to, p)
}

// NotifyIdeaEvent fans an idea event out to recipients. The actor and
// repeated addresses are skipped. It keeps going after a failed enqueue and
// returns the ids that were stored together with the first error.
func (s *NotificationService) NotifyIdeaEvent(
	ctx context.Context,
	t domain.JobType,
	p domain.IdeaEventPayload,
	recipients []string,
	actorEmail string,
) ([]string, error) {
	if !t.IsIdeaEvent() {
		return nil, domain.ErrInvalidJobType
	}

	targets := fanOut(recipients, actorEmail)
	if len(targets) == 0 {
		return nil, domain.ErrNoRecipients
	}

	ids := make([]string, 0, len(targets))
	var firstErr error
	for _, to := range targets {
		id, err := s.enqueue(ctx, t, to, p)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ids = append(ids, id)
	}
	return ids, firstErr
}

func (s *NotificationService) enqueue(ctx context.Context, t domain.JobType, to string, payload any) (string, error) {
	job, err := domain.NewJobFor(t, to, payload)
	if err != nil {
		return "", err
	}

	id, err := s.q.AddJob(ctx, job)
	if err != nil {
		s.logger.Warn("notification not enqueued",
			zap.String("type", string(t)),
			zap.String("recipient", job.RecipientEmail),
			zap.Error(err),
		)
		return "", errors.Wrapf(err, "notify %s", t)
	}
	return id, nil
}

// fanOut normalizes addresses, drops blanks, the actor and duplicates, and
// keeps the first-seen order.
func fanOut(recipients []string, actorEmail string) []string {
	actor := domain.NormalizeEmail(actorEmail)
	seen := make(map[string]struct{}, len(recipients))
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addr := domain.NormalizeEmail(r)
		if addr == "" || addr == actor {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

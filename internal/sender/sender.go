// Package sender maps each job type to the function that renders and sends
// its email. Senders never retry; they only report the outcome.
package sender

import (
	"context"

	"github.com/forgespace/notify/internal/domain"
	"github.com/forgespace/notify/internal/email"
)

// Result is the outcome of one dispatch.
type Result struct {
	Success   bool
	MessageID string
	Error     string
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

// Func renders and sends a single job.
type Func func(ctx context.Context, job *domain.Job) Result

// Dispatcher routes a job to the sender registered for its type.
type Dispatcher struct {
	transport email.Transport
	renderer  *email.Renderer
	replyTo   string
	senders   map[domain.JobType]Func
}

// NewDispatcher registers one sender per job type. replyTo may be empty.
func NewDispatcher(transport email.Transport, renderer *email.Renderer, replyTo string) *Dispatcher {
	d := &Dispatcher{transport: transport, renderer: renderer, replyTo: replyTo}
	d.senders = map[domain.JobType]Func{
		domain.JobWorkspaceInvite: d.sendInvite,
		domain.JobIdeaCreated:     d.sendIdeaEvent,
		domain.JobIdeaUpdated:     d.sendIdeaEvent,
		domain.JobIdeaCommented:   d.sendIdeaEvent,
		domain.JobPhaseChanged:    d.sendIdeaEvent,
		domain.JobWelcome:         d.sendWelcome,
	}
	return d
}

// Dispatch sends job with the sender for its type.
func (d *Dispatcher) Dispatch(ctx context.Context, job *domain.Job) Result {
	send, ok := d.senders[job.Type]
	if !ok {
		return failure(domain.ErrInvalidJobType)
	}
	return send(ctx, job)
}

func (d *Dispatcher) sendInvite(ctx context.Context, job *domain.Job) Result {
	var p domain.InvitePayload
	if err := job.Decode(&p); err != nil {
		return failure(err)
	}
	if err := p.Validate(); err != nil {
		return failure(err)
	}
	html, err := d.renderer.RenderInvite(p)
	if err != nil {
		return failure(err)
	}
	return d.deliver(ctx, job.RecipientEmail, email.InviteSubject(p), html)
}

func (d *Dispatcher) sendIdeaEvent(ctx context.Context, job *domain.Job) Result {
	var p domain.IdeaEventPayload
	if err := job.Decode(&p); err != nil {
		return failure(err)
	}
	if err := p.Validate(job.Type); err != nil {
		return failure(err)
	}
	html, err := d.renderer.RenderIdeaEvent(job.Type, p)
	if err != nil {
		return failure(err)
	}
	return d.deliver(ctx, job.RecipientEmail, email.IdeaEventSubject(job.Type, p), html)
}

func (d *Dispatcher) sendWelcome(ctx context.Context, job *domain.Job) Result {
	var p domain.WelcomePayload
	if err := job.Decode(&p); err != nil {
		return failure(err)
	}
	if err := p.Validate(); err != nil {
		return failure(err)
	}
	html, err := d.renderer.RenderWelcome(p)
	if err != nil {
		return failure(err)
	}
	return d.deliver(ctx, job.RecipientEmail, email.WelcomeSubject(p), html)
}

func (d *Dispatcher) deliver(ctx context.Context, to, subject, html string) Result {
	res, err := d.transport.Send(ctx, email.Message{
		To:      to,
		Subject: subject,
		HTML:    html,
		ReplyTo: d.replyTo,
	})
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, MessageID: res.MessageID}
}

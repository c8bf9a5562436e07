package sender_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgespace/notify/internal/domain"
	"github.com/forgespace/notify/internal/email"
	"github.com/forgespace/notify/internal/sender"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg email.Message) (*email.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, msg)
	return &email.Result{MessageID: "msg-1"}, nil
}

func newDispatcher(t *testing.T, tr email.Transport) *sender.Dispatcher {
	t.Helper()
	r, err := email.NewRenderer("https://app.forge.test")
	require.NoError(t, err)
	return sender.NewDispatcher(tr, r, "support@forge.test")
}

func job(t domain.JobType, data string) *domain.Job {
	return &domain.Job{ID: "job-1", Type: t, RecipientEmail: "user@example.com", Data: json.RawMessage(data)}
}

func TestDispatch_EachTypeSendsOneEmail(t *testing.T) {
	tests := []struct {
		jobType domain.JobType
		data    string
		subject string
	}{
		{domain.JobWorkspaceInvite, `{"inviterName":"Ada","workspaceName":"Lab","role":"member","inviteUrl":"https://x/i/1"}`, "Ada invited you to join Lab"},
		{domain.JobIdeaCreated, `{"ideaId":"1","ideaTitle":"Kiosk","actorName":"Grace"}`, "Grace shared a new idea: Kiosk"},
		{domain.JobIdeaUpdated, `{"ideaId":"1","ideaTitle":"Kiosk","actorName":"Grace"}`, `Grace updated "Kiosk"`},
		{domain.JobIdeaCommented, `{"ideaId":"1","ideaTitle":"Kiosk","actorName":"Grace","commentPreview":"nice"}`, `Grace commented on "Kiosk"`},
		{domain.JobPhaseChanged, `{"ideaId":"1","ideaTitle":"Kiosk","actorName":"Grace","oldPhase":"inception","newPhase":"refinement"}`, `"Kiosk" moved to Refinement`},
		{domain.JobWelcome, `{"userName":"Linus"}`, "Welcome to ForgeSpace, Linus!"},
	}

	for _, tc := range tests {
		t.Run(string(tc.jobType), func(t *testing.T) {
			tr := &fakeTransport{}
			d := newDispatcher(t, tr)

			res := d.Dispatch(context.Background(), job(tc.jobType, tc.data))
			require.True(t, res.Success, res.Error)
			assert.Equal(t, "msg-1", res.MessageID)

			require.Len(t, tr.sent, 1)
			msg := tr.sent[0]
			assert.Equal(t, "user@example.com", msg.To)
			assert.Equal(t, tc.subject, msg.Subject)
			assert.Equal(t, "support@forge.test", msg.ReplyTo)
			assert.Contains(t, msg.HTML, "<!DOCTYPE html>")
		})
	}
}

func TestDispatch_MissingIdeaTitleIsAFailureNotAPanic(t *testing.T) {
	tr := &fakeTransport{}
	d := newDispatcher(t, tr)

	res := d.Dispatch(context.Background(), job(domain.JobIdeaCommented, `{"ideaId":"1","actorName":"Grace"}`))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "ideaTitle")
	assert.Empty(t, tr.sent)
}

func TestDispatch_TransportError(t *testing.T) {
	tr := &fakeTransport{err: errors.New("connection reset")}
	d := newDispatcher(t, tr)

	res := d.Dispatch(context.Background(), job(domain.JobWelcome, `{"userName":"Linus"}`))
	assert.False(t, res.Success)
	assert.Equal(t, "connection reset", res.Error)
}

func TestDispatch_MalformedJSON(t *testing.T) {
	d := newDispatcher(t, &fakeTransport{})
	res := d.Dispatch(context.Background(), job(domain.JobWelcome, `{"userName":`))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestDispatch_UnknownType(t *testing.T) {
	d := newDispatcher(t, &fakeTransport{})
	res := d.Dispatch(context.Background(), job("digest", `{}`))
	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrInvalidJobType.Error(), res.Error)
}

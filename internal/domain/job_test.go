package domain_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgespace/notify/internal/domain"
)

func TestNewJob_Validate(t *testing.T) {
	valid := domain.NewJob{
		Type:           domain.JobWelcome,
		RecipientEmail: "user@example.com",
		Data:           json.RawMessage(`{"userName":"Ada"}`),
	}

	t.Run("valid request passes", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*domain.NewJob)
		want   error
	}{
		{"invalid type", func(r *domain.NewJob) { r.Type = "digest" }, domain.ErrInvalidJobType},
		{"empty recipient", func(r *domain.NewJob) { r.RecipientEmail = "" }, domain.ErrInvalidRecipient},
		{"recipient with display name", func(r *domain.NewJob) { r.RecipientEmail = "Ada <user@example.com>" }, domain.ErrInvalidRecipient},
		{"array data rejected", func(r *domain.NewJob) { r.Data = json.RawMessage(`[1,2]`) }, domain.ErrInvalidPayload},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			assert.ErrorIs(t, r.Validate(), tc.want)
		})
	}

	t.Run("payload fields are not checked", func(t *testing.T) {
		r := valid
		r.Type = domain.JobIdeaCommented
		r.Data = json.RawMessage(`{}`)
		assert.NoError(t, r.Validate())
	})

	t.Run("all job types accepted", func(t *testing.T) {
		for _, jt := range domain.JobTypes {
			r := valid
			r.Type = jt
			assert.NoError(t, r.Validate(), "type %q", jt)
		}
	})
}

func TestJob_IsDue(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		status domain.Status
		at     time.Time
		want   bool
	}{
		{"pending in the past", domain.StatusPending, now.Add(-time.Second), true},
		{"pending exactly now", domain.StatusPending, now, true},
		{"pending in the future", domain.StatusPending, now.Add(time.Second), false},
		{"processing", domain.StatusProcessing, now.Add(-time.Hour), false},
		{"completed", domain.StatusCompleted, now.Add(-time.Hour), false},
		{"failed", domain.StatusFailed, now.Add(-time.Hour), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			j := domain.Job{Status: tc.status, ScheduledFor: tc.at}
			assert.Equal(t, tc.want, j.IsDue(now))
		})
	}
}

func TestJob_Decode(t *testing.T) {
	j := domain.Job{ID: "j1", Type: domain.JobWelcome, Data: json.RawMessage(`{"userName":"Ada"}`)}
	var p domain.WelcomePayload
	require.NoError(t, j.Decode(&p))
	assert.Equal(t, "Ada", p.UserName)

	bad := domain.Job{ID: "j2", Type: domain.JobWelcome, Data: json.RawMessage(`{"userName":`)}
	assert.ErrorIs(t, bad.Decode(&p), domain.ErrInvalidPayload)

	empty := domain.Job{ID: "j3", Type: domain.JobWelcome}
	assert.ErrorIs(t, empty.Decode(&p), domain.ErrInvalidPayload)
}

func TestIdeaEventPayload_Validate(t *testing.T) {
	base := domain.IdeaEventPayload{IdeaID: "i1", IdeaTitle: "Solar kiosk", ActorName: "Grace"}

	t.Run("missing ideaTitle", func(t *testing.T) {
		p := base
		p.IdeaTitle = "  "
		assert.ErrorIs(t, p.Validate(domain.JobIdeaCommented), domain.ErrMissingField)
	})

	t.Run("commented without preview passes", func(t *testing.T) {
		p := base
		assert.NoError(t, p.Validate(domain.JobIdeaCommented))
	})

	t.Run("phase_changed needs newPhase", func(t *testing.T) {
		p := base
		assert.ErrorIs(t, p.Validate(domain.JobPhaseChanged), domain.ErrMissingField)
	})

	t.Run("phase_changed rejects unknown phase", func(t *testing.T) {
		p := base
		p.NewPhase = "shipped"
		assert.ErrorIs(t, p.Validate(domain.JobPhaseChanged), domain.ErrInvalidPhase)
	})

	t.Run("phase_changed valid", func(t *testing.T) {
		p := base
		p.OldPhase = domain.PhasePlanning
		p.NewPhase = domain.PhaseExecutionReady
		assert.NoError(t, p.Validate(domain.JobPhaseChanged))
	})
}

func TestInvitePayload_Validate(t *testing.T) {
	p := domain.InvitePayload{InviterName: "Ada", WorkspaceName: "Lab", InviteURL: "https://x/invite/abc"}
	require.NoError(t, p.Validate())

	p.Role = "superuser"
	assert.ErrorIs(t, p.Validate(), domain.ErrInvalidRole)

	p.Role = domain.RoleViewer
	p.InviteURL = ""
	assert.ErrorIs(t, p.Validate(), domain.ErrMissingField)
}

func TestPhase_Label(t *testing.T) {
	assert.Equal(t, "Execution Ready", domain.PhaseExecutionReady.Label())
	assert.Equal(t, "custom", domain.Phase("custom").Label())
}

func TestListFilter_Offset(t *testing.T) {
	tests := []struct {
		name string
		f    domain.ListFilter
		want int
	}{
		{"first page", domain.ListFilter{Page: 1, Limit: 20}, 0},
		{"third page", domain.ListFilter{Page: 3, Limit: 20}, 40},
		{"zero page", domain.ListFilter{Page: 0, Limit: 20}, 0},
		{"no limit", domain.ListFilter{Page: 5}, 0},
		{"page beyond cap", domain.ListFilter{Page: math.MaxInt, Limit: 100}, (domain.MaxPage - 1) * 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.f.Offset())
		})
	}
}

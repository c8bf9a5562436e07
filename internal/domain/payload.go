package domain

import (
	"strings"
	"time"
)

// Phase is one of the four fixed idea lifecycle stages.
type Phase string

const (
	PhaseInception      Phase = "inception"
	PhaseRefinement     Phase = "refinement"
	PhasePlanning       Phase = "planning"
	PhaseExecutionReady Phase = "execution_ready"
)

func (p Phase) IsValid() bool {
	switch p {
	case PhaseInception, PhaseRefinement, PhasePlanning, PhaseExecutionReady:
		return true
	}
	return false
}

// Label is the human-readable phase name used in email copy.
func (p Phase) Label() string {
	switch p {
	case PhaseInception:
		return "Inception"
	case PhaseRefinement:
		return "Refinement"
	case PhasePlanning:
		return "Planning"
	case PhaseExecutionReady:
		return "Execution Ready"
	}
	return string(p)
}

// Role is a workspace membership role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// InvitePayload is the data of a workspace_invite job.
type InvitePayload struct {
	InviterName   string     `json:"inviterName"`
	WorkspaceName string     `json:"workspaceName"`
	Role          Role       `json:"role"`
	InviteURL     string     `json:"inviteUrl"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

func (p *InvitePayload) Validate() error {
	if err := required(
		"inviterName", p.InviterName,
		"workspaceName", p.WorkspaceName,
		"inviteUrl", p.InviteURL,
	); err != nil {
		return err
	}
	if p.Role != "" && !p.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

// IdeaEventPayload is the data of created, updated, commented and
// phase_changed jobs.
type IdeaEventPayload struct {
	IdeaID         string `json:"ideaId"`
	IdeaTitle      string `json:"ideaTitle"`
	ActorName      string `json:"actorName"`
	WorkspaceName  string `json:"workspaceName,omitempty"`
	IdeaURL        string `json:"ideaUrl,omitempty"`
	CommentPreview string `json:"commentPreview,omitempty"`
	OldPhase       Phase  `json:"oldPhase,omitempty"`
	NewPhase       Phase  `json:"newPhase,omitempty"`
}

// Validate checks the fields every idea event needs; phase_changed also
// needs a valid target phase.
func (p *IdeaEventPayload) Validate(t JobType) error {
	if err := required("ideaTitle", p.IdeaTitle, "actorName", p.ActorName); err != nil {
		return err
	}
	if t != JobPhaseChanged {
		return nil
	}
	if p.NewPhase == "" {
		return MissingField("newPhase")
	}
	if !p.NewPhase.IsValid() || (p.OldPhase != "" && !p.OldPhase.IsValid()) {
		return ErrInvalidPhase
	}
	return nil
}

// WelcomePayload is the data of a welcome job.
type WelcomePayload struct {
	UserName     string `json:"userName"`
	DashboardURL string `json:"dashboardUrl,omitempty"`
}

func (p *WelcomePayload) Validate() error {
	return required("userName", p.UserName)
}

// required takes name/value pairs and reports the first blank value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return MissingField(pairs[i])
		}
	}
	return nil
}

package email

import (
	"fmt"

	"github.com/forgespace/notify/internal/domain"
)

// InviteSubject is the subject line of a workspace_invite email.
func InviteSubject(p domain.InvitePayload) string {
	return fmt.Sprintf("%s invited you to join %s", p.InviterName, p.WorkspaceName)
}

// IdeaEventSubject is the subject line of an idea event email of type t.
func IdeaEventSubject(t domain.JobType, p domain.IdeaEventPayload) string {
	switch t {
	case domain.JobIdeaCreated:
		return fmt.Sprintf("%s shared a new idea: %s", p.ActorName, p.IdeaTitle)
	case domain.JobIdeaUpdated:
		return fmt.Sprintf("%s updated %q", p.ActorName, p.IdeaTitle)
	case domain.JobIdeaCommented:
		return fmt.Sprintf("%s commented on %q", p.ActorName, p.IdeaTitle)
	case domain.JobPhaseChanged:
		return fmt.Sprintf("%q moved to %s", p.IdeaTitle, p.NewPhase.Label())
	}
	return fmt.Sprintf("Activity on %q", p.IdeaTitle)
}

// WelcomeSubject is the subject line of a welcome email.
func WelcomeSubject(p domain.WelcomePayload) string {
	return fmt.Sprintf("Welcome to ForgeSpace, %s!", p.UserName)
}

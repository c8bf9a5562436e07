package domain

import "github.com/cockroachdb/errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidJobType   = errors.New("invalid job type: must be workspace_invite, created, updated, commented, phase_changed, or welcome")
	ErrInvalidStatus    = errors.New("invalid status: must be pending, processing, completed, or failed")
	ErrInvalidRecipient = errors.New("recipient_email must be a valid email address")
	ErrInvalidPayload   = errors.New("data must be a JSON object")
	ErrMissingField     = errors.New("missing required payload field")
	ErrInvalidPhase     = errors.New("invalid phase: must be inception, refinement, planning, or execution_ready")
	ErrInvalidRole      = errors.New("invalid role: must be owner, admin, member, or viewer")
	ErrNoRecipients     = errors.New("at least one recipient is required")
	ErrAlreadyClaimed   = errors.New("job is no longer pending")
)

// MissingField reports a required payload field that was empty. The result
// matches ErrMissingField under errors.Is.
func MissingField(name string) error {
	return errors.Mark(errors.Newf("missing required payload field %q", name), ErrMissingField)
}

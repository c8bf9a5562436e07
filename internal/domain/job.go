package domain

import (
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Queue policy. These are fixed by the delivery contract and intentionally
// not exposed as configuration.
const (
	MaxAttempts = 3
	BatchSize   = 10
	RetryDelay  = 5 * time.Minute
)

// JobType selects the sender (and therefore the email template) for a job.
type JobType string

const (
	JobWorkspaceInvite JobType = "workspace_invite"
	JobIdeaCreated     JobType = "created"
	JobIdeaUpdated     JobType = "updated"
	JobIdeaCommented   JobType = "commented"
	JobPhaseChanged    JobType = "phase_changed"
	JobWelcome         JobType = "welcome"
)

// JobTypes lists every accepted type in a stable order.
var JobTypes = []JobType{
	JobWorkspaceInvite,
	JobIdeaCreated,
	JobIdeaUpdated,
	JobIdeaCommented,
	JobPhaseChanged,
	JobWelcome,
}

func (t JobType) IsValid() bool {
	switch t {
	case JobWorkspaceInvite, JobIdeaCreated, JobIdeaUpdated,
		JobIdeaCommented, JobPhaseChanged, JobWelcome:
		return true
	}
	return false
}

// IsIdeaEvent reports whether jobs of this type carry an IdeaEventPayload.
func (t JobType) IsIdeaEvent() bool {
	switch t {
	case JobIdeaCreated, JobIdeaUpdated, JobIdeaCommented, JobPhaseChanged:
		return true
	}
	return false
}

// Status tracks the lifecycle of a job:
//
//	pending → processing → completed
//	                     → pending (retry, scheduled_for pushed back)
//	                     → failed  (attempts exhausted)
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one queued notification delivery record.
type Job struct {
	ID             string          `json:"id"`
	Type           JobType         `json:"type"`
	RecipientEmail string          `json:"recipient_email"`
	Data           json.RawMessage `json:"data"`
	Status         Status          `json:"status"`
	Attempts       int             `json:"attempts"`
	MaxAttempts    int             `json:"max_attempts"`
	ScheduledFor   time.Time       `json:"scheduled_for"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	ProviderMsgID  *string         `json:"provider_message_id,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsDue reports whether the job may be dispatched at now.
func (j *Job) IsDue(now time.Time) bool {
	return j.Status == StatusPending && !j.ScheduledFor.After(now)
}

// Decode unmarshals the job's data into v.
func (j *Job) Decode(v any) error {
	if len(j.Data) == 0 {
		return errors.Wrapf(ErrInvalidPayload, "job %s has no data", j.ID)
	}
	if err := json.Unmarshal(j.Data, v); err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s payload", j.Type), ErrInvalidPayload)
	}
	return nil
}

// NewJob is what a producer hands to the queue. The store assigns the id,
// status, attempt counters and timestamps.
type NewJob struct {
	Type           JobType         `json:"type"`
	RecipientEmail string          `json:"recipient_email"`
	Data           json.RawMessage `json:"data"`
	ScheduledFor   *time.Time      `json:"scheduled_for,omitempty"`
}

// Validate checks the envelope only. Payload fields are checked by the
// sender at dispatch time, so a malformed payload becomes a delivery failure.
func (r *NewJob) Validate() error {
	if !r.Type.IsValid() {
		return ErrInvalidJobType
	}
	if !ValidEmail(r.RecipientEmail) {
		return ErrInvalidRecipient
	}
	data := strings.TrimSpace(string(r.Data))
	if data == "" || data[0] != '{' {
		return ErrInvalidPayload
	}
	return nil
}

// NewJobFor encodes payload and builds a NewJob for recipient.
func NewJobFor(t JobType, recipient string, payload any) (NewJob, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return NewJob{}, errors.Wrapf(err, "encode %s payload", t)
	}
	return NewJob{Type: t, RecipientEmail: NormalizeEmail(recipient), Data: data}, nil
}

// ValidEmail accepts a bare address (no display name).
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == strings.TrimSpace(s)
}

// NormalizeEmail trims and lower-cases an address for comparison and storage.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ListFilter holds query parameters for paginated job listing.
type ListFilter struct {
	Status *Status
	Type   *JobType
	Page   int
	Limit  int
}

// MaxPage bounds the page number a listing request may ask for.
const MaxPage = 1_000_000

// Offset returns the row offset for the filter's page, clamped to [0, (MaxPage-1)*Limit].
func (f ListFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	return (min(f.Page, MaxPage) - 1) * f.Limit
}

// StatusCounts is a snapshot of how many jobs sit in each status.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

func (c StatusCounts) Total() int {
	return c.Pending + c.Processing + c.Completed + c.Failed
}

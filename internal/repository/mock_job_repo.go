package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgespace/notify/internal/domain"
)

// MockJobRepository is a hand-written, in-memory implementation of
// JobRepository used in unit tests. Claim is atomic under the mutex, so it
// behaves like the conditional UPDATE of the Postgres implementation.
type MockJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	seq  map[string]int
	next int

	// Optional error overrides, set in tests to simulate failure paths.
	InsertErr  error
	FindDueErr error
	ClaimErr   error
	UpdateErr  error
	GetByIDErr error

	// ClaimCalls counts Claim invocations, successful or not.
	ClaimCalls int
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		jobs: make(map[string]*domain.Job),
		seq:  make(map[string]int),
	}
}

func (m *MockJobRepository) Insert(_ context.Context, nj domain.NewJob, now time.Time) (*domain.Job, error) {
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	if !nj.Type.IsValid() {
		return nil, domain.ErrInvalidJobType
	}

	scheduledFor := now
	if nj.ScheduledFor != nil {
		scheduledFor = *nj.ScheduledFor
	}
	j := &domain.Job{
		ID:             uuid.New().String(),
		Type:           nj.Type,
		RecipientEmail: nj.RecipientEmail,
		Data:           append([]byte(nil), nj.Data...),
		Status:         domain.StatusPending,
		MaxAttempts:    domain.MaxAttempts,
		ScheduledFor:   scheduledFor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	m.seq[j.ID] = m.next
	m.next++
	return clone(j), nil
}

func (m *MockJobRepository) GetByID(_ context.Context, id string) (*domain.Job, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(j), nil
}

func (m *MockJobRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Job, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Job
	for _, j := range m.jobs {
		if f.Status != nil && j.Status != *f.Status {
			continue
		}
		if f.Type != nil && j.Type != *f.Type {
			continue
		}
		matched = append(matched, clone(j))
	}
	sort.Slice(matched, func(a, b int) bool {
		return m.seq[matched[a].ID] > m.seq[matched[b].ID]
	})

	total := len(matched)
	if f.Limit > 0 {
		start := f.Offset()
		if start > total {
			start = total
		}
		end := min(start+f.Limit, total)
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (m *MockJobRepository) CountByStatus(_ context.Context) (domain.StatusCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var c domain.StatusCounts
	for _, j := range m.jobs {
		switch j.Status {
		case domain.StatusPending:
			c.Pending++
		case domain.StatusProcessing:
			c.Processing++
		case domain.StatusCompleted:
			c.Completed++
		case domain.StatusFailed:
			c.Failed++
		}
	}
	return c, nil
}

func (m *MockJobRepository) FindDue(_ context.Context, now time.Time, limit int) ([]*domain.Job, error) {
	if m.FindDueErr != nil {
		return nil, m.FindDueErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []*domain.Job
	for _, j := range m.jobs {
		if j.IsDue(now) {
			due = append(due, clone(j))
		}
	}
	sort.Slice(due, func(a, b int) bool {
		if !due[a].CreatedAt.Equal(due[b].CreatedAt) {
			return due[a].CreatedAt.Before(due[b].CreatedAt)
		}
		return m.seq[due[a].ID] < m.seq[due[b].ID]
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MockJobRepository) Claim(_ context.Context, id string, now time.Time) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClaimCalls++
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	j, ok := m.jobs[id]
	if !ok || !j.IsDue(now) {
		return nil, domain.ErrAlreadyClaimed
	}
	j.Status = domain.StatusProcessing
	j.UpdatedAt = now
	return clone(j), nil
}

func (m *MockJobRepository) MarkCompleted(_ context.Context, id, providerMsgID string, at time.Time) error {
	return m.transition(id, func(j *domain.Job) {
		j.Status = domain.StatusCompleted
		if providerMsgID != "" {
			j.ProviderMsgID = &providerMsgID
		}
		j.CompletedAt = &at
		j.ErrorMessage = nil
		j.UpdatedAt = at
	})
}

func (m *MockJobRepository) ScheduleRetry(_ context.Context, id string, attempts int, next time.Time, errMsg string, at time.Time) error {
	return m.transition(id, func(j *domain.Job) {
		j.Status = domain.StatusPending
		j.Attempts = attempts
		j.ScheduledFor = next
		j.ErrorMessage = &errMsg
		j.UpdatedAt = at
	})
}

func (m *MockJobRepository) MarkFailed(_ context.Context, id string, attempts int, errMsg string, at time.Time) error {
	return m.transition(id, func(j *domain.Job) {
		j.Status = domain.StatusFailed
		j.Attempts = attempts
		j.ErrorMessage = &errMsg
		j.UpdatedAt = at
	})
}

// Put stores j as-is, bypassing Insert. Tests use it to seed arbitrary state.
func (m *MockJobRepository) Put(j *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if _, ok := m.seq[j.ID]; !ok {
		m.seq[j.ID] = m.next
		m.next++
	}
	m.jobs[j.ID] = clone(j)
}

// transition applies fn to a processing job, mirroring the status guard of
// the SQL updates.
func (m *MockJobRepository) transition(id string, fn func(*domain.Job)) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != domain.StatusProcessing {
		return domain.ErrNotFound
	}
	fn(j)
	return nil
}

func clone(j *domain.Job) *domain.Job {
	c := *j
	c.Data = append([]byte(nil), j.Data...)
	if j.ErrorMessage != nil {
		s := *j.ErrorMessage
		c.ErrorMessage = &s
	}
	if j.ProviderMsgID != nil {
		s := *j.ProviderMsgID
		c.ProviderMsgID = &s
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// compile-time check that MockJobRepository implements JobRepository
var _ JobRepository = (*MockJobRepository)(nil)

package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	appErrors "github.com/apexsend/sequence-engine/internal/errors"
	"github.com/apexsend/sequence-engine/internal/model"
	"github.com/apexsend/sequence-engine/internal/repository"
	"github.com/apexsend/sequence-engine/internal/sender"
)

// memScheduledRepo is an in-memory stand-in for the Postgres store. It
// enforces the same conditional transitions the SQL does, under a mutex,
// so concurrency tests exercise real claim semantics.
type memScheduledRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*model.ScheduledMessage
}

func newMemScheduledRepo() *memScheduledRepo {
	return &memScheduledRepo{rows: map[int]*model.ScheduledMessage{}}
}

func (m *memScheduledRepo) CreateBatch(scope model.TenantScope, msgs []*model.ScheduledMessage) ([]int, []int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := []int{}
	skipped := []int{}
	for _, msg := range msgs {
		exists := false
		for _, row := range m.rows {
			if row.SequenceID == msg.SequenceID && row.StepID == msg.StepID &&
				row.RecipientID == msg.RecipientID && row.Status != model.StatusCancelled {
				exists = true
				break
			}
		}
		if exists {
			skipped = append(skipped, msg.StepID)
			continue
		}

		m.nextID++
		msg.ID = m.nextID
		msg.WorkspaceID = scope.ID
		msg.Status = model.StatusPending
		copied := *msg
		m.rows[msg.ID] = &copied
		created = append(created, msg.ID)
	}
	return created, skipped, nil
}

func (m *memScheduledRepo) DuePending(now time.Time, limit int) ([]*model.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	due := []*model.ScheduledMessage{}
	for _, row := range m.rows {
		if row.Status == model.StatusPending && !row.ScheduledAt.After(now) {
			copied := *row
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *memScheduledRepo) Claim(id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.Status != model.StatusPending {
		return false, nil
	}
	row.Status = model.StatusSending
	row.UpdatedAt = time.Now()
	return true, nil
}

func (m *memScheduledRepo) MarkSent(id int, externalID string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.Status != model.StatusSending {
		return nil
	}
	row.Status = model.StatusSent
	row.SentAt = &sentAt
	row.ExternalID = externalID
	return nil
}

func (m *memScheduledRepo) MarkFailed(id int, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.Status != model.StatusSending {
		return nil
	}
	row.Status = model.StatusFailed
	row.ErrorMessage = errorMessage
	return nil
}

func (m *memScheduledRepo) UpdateRenderedContent(id int, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row, ok := m.rows[id]; ok {
		row.RenderedContent = content
	}
	return nil
}

func (m *memScheduledRepo) ReleaseStale(staleBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := 0
	for _, row := range m.rows {
		if row.Status == model.StatusSending && row.UpdatedAt.Before(staleBefore) {
			row.Status = model.StatusPending
			row.UpdatedAt = time.Now()
			released++
		}
	}
	return released, nil
}

func (m *memScheduledRepo) CancelPending(scope model.TenantScope, sequenceID int, recipientID *int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, row := range m.rows {
		if row.WorkspaceID != scope.ID || row.SequenceID != sequenceID || row.Status != model.StatusPending {
			continue
		}
		if recipientID != nil && row.RecipientID != *recipientID {
			continue
		}
		row.Status = model.StatusCancelled
		count++
	}
	return count, nil
}

func (m *memScheduledRepo) Stats(scope model.TenantScope, sequenceID *int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := map[string]int{}
	for _, status := range model.Statuses {
		stats[status] = 0
	}
	for _, row := range m.rows {
		if row.WorkspaceID != scope.ID {
			continue
		}
		if sequenceID != nil && row.SequenceID != *sequenceID {
			continue
		}
		stats[row.Status]++
	}
	return stats, nil
}

func (m *memScheduledRepo) List(scope model.TenantScope, sequenceID int, status string, offset, limit int) ([]*model.ScheduledMessage, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*model.ScheduledMessage{}
	for _, row := range m.rows {
		if row.WorkspaceID != scope.ID || row.SequenceID != sequenceID {
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		copied := *row
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ScheduledAt.Before(matched[j].ScheduledAt) })

	total := len(matched)
	if offset >= len(matched) {
		return []*model.ScheduledMessage{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *memScheduledRepo) get(id int) *model.ScheduledMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok {
		copied := *row
		return &copied
	}
	return nil
}

var _ repository.ScheduledMessageRepositoryInterface = (*memScheduledRepo)(nil)

// mockSequenceRepo serves a fixed set of sequences and steps.
type mockSequenceRepo struct {
	sequences map[int]*model.Sequence
}

func (m *mockSequenceRepo) GetByID(scope model.TenantScope, id int) (*model.Sequence, error) {
	seq, ok := m.sequences[id]
	if !ok || seq.WorkspaceID != scope.ID {
		return nil, appErrors.NewSequenceNotFound(id)
	}
	return seq, nil
}

func (m *mockSequenceRepo) GetStepByID(id int) (*model.Step, error) {
	for _, seq := range m.sequences {
		for i := range seq.Steps {
			if seq.Steps[i].ID == id {
				return &seq.Steps[i], nil
			}
		}
	}
	return nil, nil
}

func (m *mockSequenceRepo) Create(scope model.TenantScope, s *model.Sequence) error {
	s.WorkspaceID = scope.ID
	m.sequences[s.ID] = s
	return nil
}

var _ repository.SequenceRepositoryInterface = (*mockSequenceRepo)(nil)

// mockRecipientRepo serves fixed recipients keyed by id.
type mockRecipientRepo struct {
	recipients map[int]*model.Recipient
}

func (m *mockRecipientRepo) GetByID(scope model.TenantScope, id int) (*model.Recipient, error) {
	rec, ok := m.recipients[id]
	if !ok || rec.WorkspaceID != scope.ID {
		return nil, nil
	}
	return rec, nil
}

var _ repository.RecipientRepositoryInterface = (*mockRecipientRepo)(nil)

// funcSender delegates to a test-provided function.
type funcSender struct {
	fn func(ctx context.Context, scope model.TenantScope, to string, content sender.RenderedContent) (string, error)
}

func (s *funcSender) Send(ctx context.Context, scope model.TenantScope, to string, content sender.RenderedContent) (string, error) {
	return s.fn(ctx, scope, to, content)
}

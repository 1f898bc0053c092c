package service

import (
	"log"
	"time"

	appErrors "github.com/apexsend/sequence-engine/internal/errors"
	"github.com/apexsend/sequence-engine/internal/metrics"
	"github.com/apexsend/sequence-engine/internal/model"
	"github.com/apexsend/sequence-engine/internal/repository"
)

// MessageService owns enrollment, cancellation, stats and listings for
// scheduled messages. Every method takes an explicit TenantScope.
type MessageService struct {
	SequenceRepo  repository.SequenceRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	ScheduledRepo repository.ScheduledMessageRepositoryInterface
}

// EnrollmentResult reports what one enrollment produced.
type EnrollmentResult struct {
	SequenceID   int   `json:"sequence_id"`
	RecipientID  int   `json:"recipient_id"`
	ScheduledIDs []int `json:"scheduled"`
	SkippedSteps []int `json:"skipped"`
}

// Enroll computes one scheduled message per step and persists them in a
// single transaction. Steps that already have a live row for this recipient
// are skipped, not errored. Nothing is sent synchronously.
func (s *MessageService) Enroll(scope model.TenantScope, sequenceID, recipientID int, enrolledAt time.Time) (*EnrollmentResult, error) {
	seq, err := s.SequenceRepo.GetByID(scope, sequenceID)
	if err != nil {
		return nil, err
	}
	if seq.Status != model.SequenceStatusActive {
		return nil, appErrors.NewSequenceNotActive(sequenceID, seq.Status)
	}
	if len(seq.Steps) == 0 {
		return nil, appErrors.NewValidation("sequence %d has no steps", sequenceID)
	}

	rec, err := s.RecipientRepo.GetByID(scope, recipientID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, appErrors.NewRecipientNotFound(recipientID)
	}

	sendTimes := ComputeSchedule(seq.DelayMode, seq.Steps, enrolledAt)

	msgs := make([]*model.ScheduledMessage, len(seq.Steps))
	for i, step := range seq.Steps {
		msgs[i] = &model.ScheduledMessage{
			SequenceID:      seq.ID,
			StepID:          step.ID,
			RecipientID:     rec.ID,
			Channel:         seq.Channel,
			RenderedContent: RenderStepBody(step.Content, rec),
			ScheduledAt:     sendTimes[i],
		}
	}

	created, skipped, err := s.ScheduledRepo.CreateBatch(scope, msgs)
	if err != nil {
		return nil, err
	}

	log.Printf("[ENROLL] Sequence %d recipient %d: %d scheduled, %d skipped",
		sequenceID, recipientID, len(created), len(skipped))
	metrics.RecordEnrollment(len(created), len(skipped))

	return &EnrollmentResult{
		SequenceID:   sequenceID,
		RecipientID:  recipientID,
		ScheduledIDs: created,
		SkippedSteps: skipped,
	}, nil
}

// CancelPending cancels pending messages for a sequence, optionally for one
// recipient. Rows already claimed or finalized are never touched.
func (s *MessageService) CancelPending(scope model.TenantScope, sequenceID int, recipientID *int) (int, error) {
	if _, err := s.SequenceRepo.GetByID(scope, sequenceID); err != nil {
		return 0, err
	}
	return s.ScheduledRepo.CancelPending(scope, sequenceID, recipientID)
}

// Stats returns counts by status plus a total, for dashboards only.
func (s *MessageService) Stats(scope model.TenantScope, sequenceID *int) (map[string]int, error) {
	stats, err := s.ScheduledRepo.Stats(scope, sequenceID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, count := range stats {
		total += count
	}
	stats["total"] = total
	return stats, nil
}

// ListMessages fetches a page of messages for a sequence with pagination info.
func (s *MessageService) ListMessages(scope model.TenantScope, sequenceID int, status string, page, pageSize int) ([]*model.ScheduledMessage, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	msgs, total, err := s.ScheduledRepo.List(scope, sequenceID, status, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return msgs, pagination, nil
}

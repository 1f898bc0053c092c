package service

import (
	"context"
	"log"
	"time"

	"go.uber.org/ratelimit"

	"github.com/apexsend/sequence-engine/internal/events"
	"github.com/apexsend/sequence-engine/internal/metrics"
	"github.com/apexsend/sequence-engine/internal/model"
	"github.com/apexsend/sequence-engine/internal/repository"
	"github.com/apexsend/sequence-engine/internal/sender"
)

const (
	defaultBatchLimit  = 100
	maxBatchLimit      = 1000
	defaultSendTimeout = 10 * time.Second
	defaultStaleAfter  = 15 * time.Minute
)

// DeliveryPublisher fans out delivery events; optional.
type DeliveryPublisher interface {
	PublishDelivery(evt events.DeliveryEvent) error
}

// ProcessingResult aggregates one sweep.
type ProcessingResult struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Processor sweeps due scheduled messages and delivers them. It is designed
// to be invoked periodically by cron or a runner loop; overlapping
// invocations are safe because every row is claimed with a conditional
// update before anything is sent.
type Processor struct {
	ScheduledRepo repository.ScheduledMessageRepositoryInterface
	SequenceRepo  repository.SequenceRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	Senders       map[string]sender.Sender
	Events        DeliveryPublisher

	SendTimeout time.Duration
	StaleAfter  time.Duration
	Limiter     ratelimit.Limiter
	Now         func() time.Time
}

// NewProcessor wires a processor with defaults: 10s per-send timeout, 15m
// stale-claim recovery, 30 sends/sec rate limit.
func NewProcessor(
	scheduledRepo repository.ScheduledMessageRepositoryInterface,
	sequenceRepo repository.SequenceRepositoryInterface,
	recipientRepo repository.RecipientRepositoryInterface,
	senders map[string]sender.Sender,
) *Processor {
	return &Processor{
		ScheduledRepo: scheduledRepo,
		SequenceRepo:  sequenceRepo,
		RecipientRepo: recipientRepo,
		Senders:       senders,
		SendTimeout:   defaultSendTimeout,
		StaleAfter:    defaultStaleAfter,
		Limiter:       ratelimit.New(30),
		Now:           time.Now,
	}
}

// ProcessPending selects up to limit due rows, claims each one atomically
// and attempts delivery. Individual send failures mark the row failed and
// the sweep continues; only store errors abort the batch.
func (p *Processor) ProcessPending(ctx context.Context, limit int) (*ProcessingResult, error) {
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	if limit > maxBatchLimit {
		limit = maxBatchLimit
	}

	now := p.Now()
	result := &ProcessingResult{}

	// Claims abandoned by a crashed invocation go back to pending so the
	// rows are not stuck in sending forever.
	if p.StaleAfter > 0 {
		released, err := p.ScheduledRepo.ReleaseStale(now.Add(-p.StaleAfter))
		if err != nil {
			return nil, err
		}
		if released > 0 {
			log.Printf("[PROCESSOR] Released %d stale sending claims", released)
		}
	}

	due, err := p.ScheduledRepo.DuePending(now, limit)
	if err != nil {
		return nil, err
	}

	for _, msg := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		claimed, err := p.ScheduledRepo.Claim(msg.ID)
		if err != nil {
			return result, err
		}
		if !claimed {
			// Another invocation or a cancellation won the row.
			result.Skipped++
			continue
		}
		result.Attempted++

		if err := p.deliver(ctx, msg, result); err != nil {
			return result, err
		}
	}

	metrics.RecordBatch(result.Attempted)
	log.Printf("[PROCESSOR] Batch done: attempted=%d sent=%d failed=%d skipped=%d",
		result.Attempted, result.Sent, result.Failed, result.Skipped)
	return result, nil
}

// deliver handles one claimed row. A non-nil return is an infrastructure
// error; delivery problems are recorded on the row instead.
func (p *Processor) deliver(ctx context.Context, msg *model.ScheduledMessage, result *ProcessingResult) error {
	scope := model.TenantScope{ID: msg.WorkspaceID}

	rec, err := p.RecipientRepo.GetByID(scope, msg.RecipientID)
	if err != nil {
		return err
	}
	if rec == nil {
		return p.finalizeFailure(msg, "recipient no longer exists", result)
	}

	content, reason, err := p.renderContent(msg, rec)
	if err != nil {
		return err
	}
	if reason != "" {
		return p.finalizeFailure(msg, reason, result)
	}

	snd, ok := p.Senders[msg.Channel]
	if !ok {
		return p.finalizeFailure(msg, "no sender configured for channel "+msg.Channel, result)
	}

	if p.Limiter != nil {
		p.Limiter.Take()
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.SendTimeout)
	externalID, sendErr := snd.Send(sendCtx, scope, rec.Address(msg.Channel), content)
	cancel()

	if sendErr != nil {
		log.Printf("[PROCESSOR] Send failed for message %d: %v", msg.ID, sendErr)
		return p.finalizeFailure(msg, sendErr.Error(), result)
	}

	sentAt := p.Now()
	if err := p.ScheduledRepo.MarkSent(msg.ID, externalID, sentAt); err != nil {
		return err
	}
	result.Sent++
	metrics.RecordDelivery(msg.Channel, model.StatusSent)
	p.publishEvent(msg, model.StatusSent, externalID, "", sentAt)
	return nil
}

// renderContent builds the provider payload from the stored snapshot,
// falling back to rendering from the step template when the snapshot is
// empty. reason is non-empty when the row cannot be rendered at all.
func (p *Processor) renderContent(msg *model.ScheduledMessage, rec *model.Recipient) (content sender.RenderedContent, reason string, err error) {
	content.Body = msg.RenderedContent

	needStep := msg.Channel == model.ChannelEmail || content.Body == ""
	if !needStep {
		return content, "", nil
	}

	step, err := p.SequenceRepo.GetStepByID(msg.StepID)
	if err != nil {
		return content, "", err
	}
	if step == nil {
		return content, "sequence step no longer exists", nil
	}

	content.Subject = RenderStepSubject(step.Content, rec)
	if content.Body == "" {
		content.Body = RenderStepBody(step.Content, rec)
		if err := p.ScheduledRepo.UpdateRenderedContent(msg.ID, content.Body); err != nil {
			return content, "", err
		}
	}
	return content, "", nil
}

func (p *Processor) finalizeFailure(msg *model.ScheduledMessage, reason string, result *ProcessingResult) error {
	if err := p.ScheduledRepo.MarkFailed(msg.ID, reason); err != nil {
		return err
	}
	result.Failed++
	metrics.RecordDelivery(msg.Channel, model.StatusFailed)
	p.publishEvent(msg, model.StatusFailed, "", reason, p.Now())
	return nil
}

func (p *Processor) publishEvent(msg *model.ScheduledMessage, status, externalID, errorMessage string, at time.Time) {
	if p.Events == nil {
		return
	}
	_ = p.Events.PublishDelivery(events.DeliveryEvent{
		MessageID:    msg.ID,
		WorkspaceID:  msg.WorkspaceID,
		SequenceID:   msg.SequenceID,
		StepID:       msg.StepID,
		RecipientID:  msg.RecipientID,
		Channel:      msg.Channel,
		Status:       status,
		ExternalID:   externalID,
		ErrorMessage: errorMessage,
		OccurredAt:   at,
	})
}

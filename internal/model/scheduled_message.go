package model

import "time"

// ScheduledMessage statuses. pending and sending are transient; sent, failed
// and cancelled are terminal and never revisited.
const (
	StatusPending   = "pending"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Statuses lists every status in lifecycle order, used by stats rollups.
var Statuses = []string{StatusPending, StatusSending, StatusSent, StatusFailed, StatusCancelled}

// ScheduledMessage is one step of one recipient's run through a sequence.
// The table of these rows is the engine's durable queue: it survives
// restarts and is the only state the processor trusts.
type ScheduledMessage struct {
	ID              int        `db:"id" json:"id"`
	WorkspaceID     int        `db:"workspace_id" json:"workspace_id"`
	SequenceID      int        `db:"sequence_id" json:"sequence_id"`
	StepID          int        `db:"step_id" json:"step_id"`
	RecipientID     int        `db:"recipient_id" json:"recipient_id"`
	Channel         string     `db:"channel" json:"channel"`
	RenderedContent string     `db:"rendered_content" json:"rendered_content"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status          string     `db:"status" json:"status"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	ExternalID      string     `db:"external_id" json:"external_id,omitempty"`
	ErrorMessage    string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

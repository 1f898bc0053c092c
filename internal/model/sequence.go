package model

import (
	"fmt"
	"strings"
	"time"
)

// Sequence statuses
const (
	SequenceStatusDraft    = "draft"
	SequenceStatusActive   = "active"
	SequenceStatusArchived = "archived"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Delay modes. Cumulative schedules step k at enrolledAt + sum(delays 1..k);
// independent schedules step k at enrolledAt + delay_k.
const (
	DelayModeCumulative  = "cumulative"
	DelayModeIndependent = "independent"
)

// Delay units
const (
	DelayUnitMinutes = "minutes"
	DelayUnitHours   = "hours"
	DelayUnitDays    = "days"
)

// MaxSMSSteps bounds SMS follow-up sequences.
const MaxSMSSteps = 5

type Sequence struct {
	ID          int        `db:"id" json:"id"`
	WorkspaceID int        `db:"workspace_id" json:"workspace_id"`
	Name        string     `db:"name" json:"name"`
	Channel     string     `db:"channel" json:"channel"`
	Status      string     `db:"status" json:"status"`
	DelayMode   string     `db:"delay_mode" json:"delay_mode"`
	Steps       []Step     `json:"steps,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

type Step struct {
	ID          int         `db:"id" json:"id"`
	SequenceID  int         `db:"sequence_id" json:"sequence_id"`
	StepOrder   int         `db:"step_order" json:"step_order"`
	DelayAmount int         `db:"delay_amount" json:"delay_amount"`
	DelayUnit   string      `db:"delay_unit" json:"delay_unit"`
	Content     StepContent `db:"content" json:"content"`
}

// StepContent is the typed per-channel message body. Kind decides which
// fields are meaningful: email uses Subject/HTML/Text, sms uses Text only.
type StepContent struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject,omitempty"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text"`
}

// Delay converts the step's delay to a duration.
func (s Step) Delay() time.Duration {
	switch s.DelayUnit {
	case DelayUnitMinutes:
		return time.Duration(s.DelayAmount) * time.Minute
	case DelayUnitHours:
		return time.Duration(s.DelayAmount) * time.Hour
	case DelayUnitDays:
		return time.Duration(s.DelayAmount) * 24 * time.Hour
	default:
		return time.Duration(s.DelayAmount) * time.Hour
	}
}

// Validate checks a step against its sequence channel. Content is validated
// here, at write time, never decoded ad hoc at read time.
func (s Step) Validate(channel string) error {
	if s.StepOrder < 1 {
		return fmt.Errorf("step order must be >= 1, got %d", s.StepOrder)
	}
	if s.DelayAmount < 0 {
		return fmt.Errorf("step %d: delay must be >= 0, got %d", s.StepOrder, s.DelayAmount)
	}
	switch s.DelayUnit {
	case DelayUnitMinutes, DelayUnitHours, DelayUnitDays:
	default:
		return fmt.Errorf("step %d: invalid delay unit %q", s.StepOrder, s.DelayUnit)
	}
	if s.Content.Kind != channel {
		return fmt.Errorf("step %d: content kind %q does not match sequence channel %q", s.StepOrder, s.Content.Kind, channel)
	}
	switch s.Content.Kind {
	case ChannelEmail:
		if strings.TrimSpace(s.Content.Subject) == "" {
			return fmt.Errorf("step %d: email content requires a subject", s.StepOrder)
		}
		if strings.TrimSpace(s.Content.HTML) == "" && strings.TrimSpace(s.Content.Text) == "" {
			return fmt.Errorf("step %d: email content requires an html or text body", s.StepOrder)
		}
	case ChannelSMS:
		if strings.TrimSpace(s.Content.Text) == "" {
			return fmt.Errorf("step %d: sms content requires text", s.StepOrder)
		}
	default:
		return fmt.Errorf("step %d: unknown content kind %q", s.StepOrder, s.Content.Kind)
	}
	return nil
}

// ValidateSteps checks the whole step list: at least one step, contiguous
// 1-based orders, per-step validation, and the SMS step bound.
func ValidateSteps(channel string, steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("sequence must have at least one step")
	}
	if channel == ChannelSMS && len(steps) > MaxSMSSteps {
		return fmt.Errorf("sms sequences are limited to %d steps, got %d", MaxSMSSteps, len(steps))
	}
	for i, step := range steps {
		if step.StepOrder != i+1 {
			return fmt.Errorf("step orders must be contiguous starting at 1: position %d has order %d", i+1, step.StepOrder)
		}
		if err := step.Validate(channel); err != nil {
			return err
		}
	}
	return nil
}

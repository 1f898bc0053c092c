package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/apexsend/sequence-engine/internal/model"
)

// uniqueViolation is the Postgres error code raised when two enrollments
// race past the existence check into the partial unique index.
const uniqueViolation = "23505"

type ScheduledMessageRepositoryInterface interface {
	// Enrollment
	CreateBatch(scope model.TenantScope, msgs []*model.ScheduledMessage) (created []int, skippedStepIDs []int, err error)

	// Processor
	DuePending(now time.Time, limit int) ([]*model.ScheduledMessage, error)
	Claim(id int) (bool, error)
	MarkSent(id int, externalID string, sentAt time.Time) error
	MarkFailed(id int, errorMessage string) error
	UpdateRenderedContent(id int, content string) error
	ReleaseStale(staleBefore time.Time) (int, error)

	// Administration
	CancelPending(scope model.TenantScope, sequenceID int, recipientID *int) (int, error)
	Stats(scope model.TenantScope, sequenceID *int) (map[string]int, error)
	List(scope model.TenantScope, sequenceID int, status string, offset, limit int) ([]*model.ScheduledMessage, int, error)
}

type ScheduledMessageRepository struct {
	DB *sql.DB
}

// CreateBatch inserts one row per step inside a single transaction. Steps
// that already have a non-cancelled row for this (sequence, step, recipient)
// are skipped rather than failing the whole enrollment. Any other failure
// rolls the entire batch back.
func (r *ScheduledMessageRepository) CreateBatch(scope model.TenantScope, msgs []*model.ScheduledMessage) ([]int, []int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	existsQuery := `
        SELECT 1 FROM scheduled_messages
        WHERE sequence_id=$1 AND step_id=$2 AND recipient_id=$3 AND status <> 'cancelled'
        LIMIT 1
    `
	insertQuery := `
        INSERT INTO scheduled_messages
        (workspace_id, sequence_id, step_id, recipient_id, channel, rendered_content, scheduled_at, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', NOW(), NOW())
        RETURNING id
    `

	created := []int{}
	skipped := []int{}
	for _, msg := range msgs {
		var tmp int
		err := tx.QueryRow(existsQuery, msg.SequenceID, msg.StepID, msg.RecipientID).Scan(&tmp)
		if err == nil {
			skipped = append(skipped, msg.StepID)
			continue
		}
		if err != sql.ErrNoRows {
			return nil, nil, err
		}

		err = tx.QueryRow(insertQuery,
			scope.ID, msg.SequenceID, msg.StepID, msg.RecipientID,
			msg.Channel, msg.RenderedContent, msg.ScheduledAt,
		).Scan(&msg.ID)
		if err != nil {
			// A concurrent enrollment can win the race between the
			// existence check and the insert; the unique index turns
			// that into a skip, same as the check.
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
				skipped = append(skipped, msg.StepID)
				continue
			}
			return nil, nil, err
		}
		msg.WorkspaceID = scope.ID
		msg.Status = model.StatusPending
		created = append(created, msg.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return created, skipped, nil
}

// DuePending selects due rows across all tenants in scheduled order. Tenant
// isolation for the sweep is per-row: each returned row carries its
// workspace_id.
func (r *ScheduledMessageRepository) DuePending(now time.Time, limit int) ([]*model.ScheduledMessage, error) {
	query := `
        SELECT id, workspace_id, sequence_id, step_id, recipient_id, channel, rendered_content,
               scheduled_at, status, sent_at, external_id, error_message, created_at, updated_at
        FROM scheduled_messages
        WHERE status='pending' AND scheduled_at <= $1
        ORDER BY scheduled_at ASC
        LIMIT $2
    `
	rows, err := r.DB.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*model.ScheduledMessage{}
	for rows.Next() {
		msg, err := scanScheduledMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Claim atomically flips pending -> sending. Returns false when another
// invocation (or a cancellation) got to the row first; the WHERE clause is
// the whole locking story.
func (r *ScheduledMessageRepository) Claim(id int) (bool, error) {
	res, err := r.DB.Exec(
		`UPDATE scheduled_messages SET status='sending', updated_at=NOW() WHERE id=$1 AND status='pending'`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkSent finalizes a claimed row. The status guard keeps terminal states
// terminal even if called twice.
func (r *ScheduledMessageRepository) MarkSent(id int, externalID string, sentAt time.Time) error {
	_, err := r.DB.Exec(
		`UPDATE scheduled_messages SET status='sent', sent_at=$1, external_id=$2, error_message='', updated_at=NOW()
         WHERE id=$3 AND status='sending'`,
		sentAt, externalID, id,
	)
	return err
}

func (r *ScheduledMessageRepository) MarkFailed(id int, errorMessage string) error {
	_, err := r.DB.Exec(
		`UPDATE scheduled_messages SET status='failed', error_message=$1, updated_at=NOW()
         WHERE id=$2 AND status='sending'`,
		errorMessage, id,
	)
	return err
}

func (r *ScheduledMessageRepository) UpdateRenderedContent(id int, content string) error {
	_, err := r.DB.Exec(
		`UPDATE scheduled_messages SET rendered_content=$1, updated_at=NOW() WHERE id=$2`,
		content, id,
	)
	return err
}

// ReleaseStale returns sending rows abandoned by a crashed invocation to
// pending. A row released after the provider already accepted it can be
// sent twice; the window is bounded by the stale cutoff.
func (r *ScheduledMessageRepository) ReleaseStale(staleBefore time.Time) (int, error) {
	res, err := r.DB.Exec(
		`UPDATE scheduled_messages SET status='pending', updated_at=NOW()
         WHERE status='sending' AND updated_at < $1`,
		staleBefore,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CancelPending flips pending rows to cancelled for a sequence, optionally
// narrowed to one recipient. Rows in any other status are untouched, which
// makes the call idempotent and safe to race against the processor's claim.
func (r *ScheduledMessageRepository) CancelPending(scope model.TenantScope, sequenceID int, recipientID *int) (int, error) {
	query := `
        UPDATE scheduled_messages SET status='cancelled', updated_at=NOW()
        WHERE workspace_id=$1 AND sequence_id=$2 AND status='pending'
    `
	args := []interface{}{scope.ID, sequenceID}
	if recipientID != nil {
		query += ` AND recipient_id=$3`
		args = append(args, *recipientID)
	}

	res, err := r.DB.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Stats returns counts by status, tenant-scoped, optionally per sequence.
func (r *ScheduledMessageRepository) Stats(scope model.TenantScope, sequenceID *int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM scheduled_messages WHERE workspace_id=$1`
	args := []interface{}{scope.ID}
	if sequenceID != nil {
		query += ` AND sequence_id=$2`
		args = append(args, *sequenceID)
	}
	query += ` GROUP BY status`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{}
	for _, status := range model.Statuses {
		stats[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// List returns a page of messages for a sequence plus the total count.
func (r *ScheduledMessageRepository) List(scope model.TenantScope, sequenceID int, status string, offset, limit int) ([]*model.ScheduledMessage, int, error) {
	query := `
        SELECT id, workspace_id, sequence_id, step_id, recipient_id, channel, rendered_content,
               scheduled_at, status, sent_at, external_id, error_message, created_at, updated_at
        FROM scheduled_messages
        WHERE workspace_id=$1 AND sequence_id=$2
    `
	args := []interface{}{scope.ID, sequenceID}
	argPos := 3

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY scheduled_at ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	msgs := []*model.ScheduledMessage{}
	for rows.Next() {
		msg, err := scanScheduledMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM scheduled_messages WHERE workspace_id=$1 AND sequence_id=$2`
	countArgs := []interface{}{scope.ID, sequenceID}
	if status != "" {
		countQuery += ` AND status=$3`
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return msgs, total, nil
}

func scanScheduledMessage(rows *sql.Rows) (*model.ScheduledMessage, error) {
	msg := &model.ScheduledMessage{}
	err := rows.Scan(
		&msg.ID, &msg.WorkspaceID, &msg.SequenceID, &msg.StepID, &msg.RecipientID,
		&msg.Channel, &msg.RenderedContent, &msg.ScheduledAt, &msg.Status,
		&msg.SentAt, &msg.ExternalID, &msg.ErrorMessage, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

var _ ScheduledMessageRepositoryInterface = (*ScheduledMessageRepository)(nil)

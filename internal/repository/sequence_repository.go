package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/apexsend/sequence-engine/internal/errors"
	"github.com/apexsend/sequence-engine/internal/model"
)

type SequenceRepositoryInterface interface {
	GetByID(scope model.TenantScope, id int) (*model.Sequence, error)
	GetStepByID(id int) (*model.Step, error)
	Create(scope model.TenantScope, s *model.Sequence) error
}

type SequenceRepository struct {
	DB *sql.DB
}

// GetByID fetches a sequence with its steps, scoped to the tenant.
func (r *SequenceRepository) GetByID(scope model.TenantScope, id int) (*model.Sequence, error) {
	query := `
        SELECT id, workspace_id, name, channel, status, delay_mode, created_at, updated_at
        FROM sequences WHERE id=$1 AND workspace_id=$2
    `
	var s model.Sequence
	err := r.DB.QueryRow(query, id, scope.ID).Scan(
		&s.ID, &s.WorkspaceID, &s.Name, &s.Channel, &s.Status, &s.DelayMode, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewSequenceNotFound(id)
		}
		return nil, err
	}

	steps, err := r.listSteps(s.ID)
	if err != nil {
		return nil, err
	}
	s.Steps = steps
	return &s, nil
}

func (r *SequenceRepository) listSteps(sequenceID int) ([]model.Step, error) {
	query := `
        SELECT id, sequence_id, step_order, delay_amount, delay_unit, content
        FROM sequence_steps
        WHERE sequence_id=$1
        ORDER BY step_order ASC
    `
	rows, err := r.DB.Query(query, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := []model.Step{}
	for rows.Next() {
		var step model.Step
		var content []byte
		if err := rows.Scan(&step.ID, &step.SequenceID, &step.StepOrder, &step.DelayAmount, &step.DelayUnit, &content); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(content, &step.Content); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// GetStepByID fetches a single step. Used by the processor when a claimed
// row has no rendered snapshot yet; the row itself carries the tenant.
func (r *SequenceRepository) GetStepByID(id int) (*model.Step, error) {
	query := `
        SELECT id, sequence_id, step_order, delay_amount, delay_unit, content
        FROM sequence_steps WHERE id=$1
    `
	var step model.Step
	var content []byte
	err := r.DB.QueryRow(query, id).Scan(&step.ID, &step.SequenceID, &step.StepOrder, &step.DelayAmount, &step.DelayUnit, &content)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(content, &step.Content); err != nil {
		return nil, err
	}
	return &step, nil
}

// Create inserts a sequence and its steps in one transaction. Steps are
// validated before any write happens.
func (r *SequenceRepository) Create(scope model.TenantScope, s *model.Sequence) error {
	if err := model.ValidateSteps(s.Channel, s.Steps); err != nil {
		return appErrors.NewValidation("%s", err.Error())
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s.WorkspaceID = scope.ID
	s.CreatedAt = time.Now()
	if s.Status == "" {
		s.Status = model.SequenceStatusDraft
	}
	if s.DelayMode == "" {
		s.DelayMode = model.DelayModeCumulative
	}

	query := `
        INSERT INTO sequences (workspace_id, name, channel, status, delay_mode, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	if err := tx.QueryRow(query, s.WorkspaceID, s.Name, s.Channel, s.Status, s.DelayMode, s.CreatedAt).Scan(&s.ID); err != nil {
		return err
	}

	stepQuery := `
        INSERT INTO sequence_steps (sequence_id, step_order, delay_amount, delay_unit, content)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	for i := range s.Steps {
		step := &s.Steps[i]
		step.SequenceID = s.ID
		content, err := json.Marshal(step.Content)
		if err != nil {
			return err
		}
		if err := tx.QueryRow(stepQuery, s.ID, step.StepOrder, step.DelayAmount, step.DelayUnit, content).Scan(&step.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

var _ SequenceRepositoryInterface = (*SequenceRepository)(nil)

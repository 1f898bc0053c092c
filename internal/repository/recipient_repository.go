package repository

import (
	"database/sql"

	"github.com/apexsend/sequence-engine/internal/model"
)

// RecipientRepositoryInterface defines methods used by services
type RecipientRepositoryInterface interface {
	GetByID(scope model.TenantScope, id int) (*model.Recipient, error)
}

// RecipientRepository is the concrete implementation
type RecipientRepository struct {
	DB *sql.DB
}

// GetByID fetches a recipient by ID within the tenant
func (r *RecipientRepository) GetByID(scope model.TenantScope, id int) (*model.Recipient, error) {
	query := `
        SELECT id, workspace_id, email, phone, first_name, last_name, location
        FROM recipients
        WHERE id = $1 AND workspace_id = $2
    `
	row := r.DB.QueryRow(query, id, scope.ID)

	var rec model.Recipient
	if err := row.Scan(&rec.ID, &rec.WorkspaceID, &rec.Email, &rec.Phone, &rec.FirstName, &rec.LastName, &rec.Location); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &rec, nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)

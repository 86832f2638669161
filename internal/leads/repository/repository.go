package repository

import (
	"context"
	"errors"
	"fmt"

	"crm_backend/internal/leads/domain"
	"crm_backend/platform/apperr"
	"crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadNotFoundMsg = "lead not found"

const leadSelectCols = `id, workspace_id, name, phone, email, source, status::text, created_at`

const getLeadQuery = `
	SELECT ` + leadSelectCols + `
	FROM leads
	WHERE id = $1 AND workspace_id = $2`

const updateLeadStatusQuery = `
	UPDATE leads SET status = $3::lead_status
	WHERE id = $1 AND workspace_id = $2
	RETURNING ` + leadSelectCols

const listLeadsQuery = `
	SELECT ` + leadSelectCols + `
	FROM leads
	WHERE workspace_id = $1
	ORDER BY created_at DESC`

// Repository provides database operations for leads.
type Repository struct {
	db db.DBTX
}

// New creates a lead repository on a pool or a transaction.
func New(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead domain.Lead) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO leads (id, workspace_id, name, phone, email, source, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::lead_status, $8)
	`, lead.ID, lead.WorkspaceID, lead.Name, lead.Phone, lead.Email, lead.Source, string(lead.Status), lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetByID retrieves a lead inside a workspace.
func (r *Repository) GetByID(ctx context.Context, workspaceID, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, getLeadQuery, leadID, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return domain.Lead{}, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// UpdateStatus sets the pipeline status and returns the updated lead.
func (r *Repository) UpdateStatus(ctx context.Context, workspaceID, leadID uuid.UUID, status domain.Status) (domain.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, updateLeadStatusQuery, leadID, workspaceID, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return domain.Lead{}, fmt.Errorf("failed to update lead status: %w", err)
	}
	return lead, nil
}

// List returns the workspace's leads, newest first.
func (r *Repository) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.db.Query(ctx, listLeadsQuery, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// scanLead reads the columns of leadSelectCols from a pgx.Row or pgx.Rows.
func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	var status string
	if err := row.Scan(
		&lead.ID,
		&lead.WorkspaceID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Source,
		&status,
		&lead.CreatedAt,
	); err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

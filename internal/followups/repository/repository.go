package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"crm_backend/internal/followups/domain"
	"crm_backend/platform/apperr"
	"crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	followUpNotFoundMsg = "follow-up not found"
	leadNotFoundMsg     = "lead not found"

	pgForeignKeyViolation = "23503"
)

const followUpSelectCols = `id, workspace_id, lead_id, title, priority::text, notes, status::text,
	scheduled_at, done_at, canceled_at, outcome, created_at`

const insertFollowUpQuery = `
	INSERT INTO follow_ups (
		id, workspace_id, lead_id, title, priority, notes, status,
		scheduled_at, done_at, canceled_at, outcome, created_at
	) VALUES (
		$1, $2, $3, $4, $5::follow_up_priority, $6, $7::follow_up_status,
		$8, $9, $10, $11, $12
	)`

const getFollowUpQuery = `
	SELECT ` + followUpSelectCols + `
	FROM follow_ups
	WHERE id = $1 AND workspace_id = $2`

const getFollowUpForUpdateQuery = getFollowUpQuery + `
	FOR UPDATE`

const updateFollowUpQuery = `
	UPDATE follow_ups SET
		notes = $3,
		status = $4::follow_up_status,
		scheduled_at = $5,
		done_at = $6,
		canceled_at = $7,
		outcome = $8
	WHERE id = $1 AND workspace_id = $2`

const listByLeadQuery = `
	SELECT ` + followUpSelectCols + `
	FROM follow_ups
	WHERE lead_id = $1 AND workspace_id = $2
	ORDER BY scheduled_at ASC, created_at ASC`

const listPendingBaseQuery = `
	SELECT f.id, f.workspace_id, f.lead_id, f.title, f.priority::text, f.notes, f.status::text,
		f.scheduled_at, f.done_at, f.canceled_at, f.outcome, f.created_at,
		l.id, l.name, l.phone, l.status::text
	FROM follow_ups f
	JOIN leads l ON l.id = f.lead_id AND l.workspace_id = f.workspace_id
	WHERE f.workspace_id = $1 AND f.status = 'PENDING'`

// Repository provides database operations for follow-ups.
type Repository struct {
	db db.DBTX
}

// New creates a follow-up repository on a pool or a transaction.
func New(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Create inserts a follow-up. A lead outside the workspace surfaces as NotFound
// through the composite foreign key.
func (r *Repository) Create(ctx context.Context, f domain.FollowUp) error {
	_, err := r.db.Exec(ctx, insertFollowUpQuery,
		f.ID, f.WorkspaceID, f.LeadID, f.Title, string(f.Priority), f.Notes, string(f.Status),
		f.ScheduledAt, f.DoneAt, f.CanceledAt, f.Outcome, f.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperr.NotFound(leadNotFoundMsg)
		}
		return fmt.Errorf("failed to create follow-up: %w", err)
	}
	return nil
}

// GetByID retrieves a follow-up inside a workspace.
func (r *Repository) GetByID(ctx context.Context, workspaceID, followUpID uuid.UUID) (domain.FollowUp, error) {
	return r.get(ctx, getFollowUpQuery, workspaceID, followUpID)
}

// GetForUpdate retrieves a follow-up and row-locks it until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *Repository) GetForUpdate(ctx context.Context, workspaceID, followUpID uuid.UUID) (domain.FollowUp, error) {
	return r.get(ctx, getFollowUpForUpdateQuery, workspaceID, followUpID)
}

func (r *Repository) get(ctx context.Context, query string, workspaceID, followUpID uuid.UUID) (domain.FollowUp, error) {
	f, err := scanFollowUp(r.db.QueryRow(ctx, query, followUpID, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FollowUp{}, apperr.NotFound(followUpNotFoundMsg)
		}
		return domain.FollowUp{}, fmt.Errorf("failed to get follow-up: %w", err)
	}
	return f, nil
}

// Update writes the mutable lifecycle columns.
func (r *Repository) Update(ctx context.Context, f domain.FollowUp) error {
	tag, err := r.db.Exec(ctx, updateFollowUpQuery,
		f.ID, f.WorkspaceID, f.Notes, string(f.Status), f.ScheduledAt, f.DoneAt, f.CanceledAt, f.Outcome,
	)
	if err != nil {
		return fmt.Errorf("failed to update follow-up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(followUpNotFoundMsg)
	}
	return nil
}

// ListByLead returns every follow-up of a lead in schedule order.
func (r *Repository) ListByLead(ctx context.Context, workspaceID, leadID uuid.UUID) ([]domain.FollowUp, error) {
	rows, err := r.db.Query(ctx, listByLeadQuery, leadID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	items := make([]domain.FollowUp, 0)
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListPending returns PENDING follow-ups scheduled inside window, joined with
// their lead, earliest first.
func (r *Repository) ListPending(ctx context.Context, workspaceID uuid.UUID, window domain.Window) ([]domain.WithLead, error) {
	query, args := buildListPendingQuery(workspaceID, window)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending follow-ups: %w", err)
	}
	defer rows.Close()

	items := make([]domain.WithLead, 0)
	for rows.Next() {
		var item domain.WithLead
		var priority, status string
		if err := rows.Scan(
			&item.ID,
			&item.WorkspaceID,
			&item.LeadID,
			&item.Title,
			&priority,
			&item.Notes,
			&status,
			&item.ScheduledAt,
			&item.DoneAt,
			&item.CanceledAt,
			&item.Outcome,
			&item.CreatedAt,
			&item.Lead.ID,
			&item.Lead.Name,
			&item.Lead.Phone,
			&item.Lead.Status,
		); err != nil {
			return nil, err
		}
		item.Priority = domain.Priority(priority)
		item.Status = domain.Status(status)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// buildListPendingQuery appends one scheduled_at predicate per bounded side
// of the window.
func buildListPendingQuery(workspaceID uuid.UUID, window domain.Window) (string, []any) {
	var sb strings.Builder
	sb.WriteString(listPendingBaseQuery)
	args := []any{workspaceID}

	if !window.From.IsZero() {
		op := ">="
		if window.FromOpen {
			op = ">"
		}
		args = append(args, window.From)
		sb.WriteString(" AND f.scheduled_at " + op + " $" + strconv.Itoa(len(args)))
	}
	if !window.To.IsZero() {
		op := "<="
		if window.ToOpen {
			op = "<"
		}
		args = append(args, window.To)
		sb.WriteString(" AND f.scheduled_at " + op + " $" + strconv.Itoa(len(args)))
	}

	sb.WriteString(" ORDER BY f.scheduled_at ASC, f.created_at ASC")
	return sb.String(), args
}

func scanFollowUp(row pgx.Row) (domain.FollowUp, error) {
	var f domain.FollowUp
	var priority, status string
	if err := row.Scan(
		&f.ID,
		&f.WorkspaceID,
		&f.LeadID,
		&f.Title,
		&priority,
		&f.Notes,
		&status,
		&f.ScheduledAt,
		&f.DoneAt,
		&f.CanceledAt,
		&f.Outcome,
		&f.CreatedAt,
	); err != nil {
		return domain.FollowUp{}, err
	}
	f.Priority = domain.Priority(priority)
	f.Status = domain.Status(status)
	return f, nil
}

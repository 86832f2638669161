package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"crm_backend/internal/activities/domain"
	"crm_backend/platform/db"

	"github.com/google/uuid"
)

const insertActivityQuery = `
	INSERT INTO activities (id, workspace_id, type, lead_id, follow_up_id, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

const listActivitiesQuery = `
	SELECT id, workspace_id, type, lead_id, follow_up_id, payload, created_at
	FROM activities
	WHERE workspace_id = $1
	ORDER BY created_at DESC, id DESC`

// Repository appends and reads activities. There is no update or delete.
type Repository struct {
	db db.DBTX
}

func New(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Append inserts one activity row.
func (r *Repository) Append(ctx context.Context, a domain.Activity) error {
	payload := a.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode activity payload: %w", err)
	}

	if _, err := r.db.Exec(ctx, insertActivityQuery,
		a.ID, a.WorkspaceID, string(a.Type), a.LeadID, a.FollowUpID, raw, a.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// ListByWorkspace returns activities newest first. limit <= 0 returns all.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]domain.Activity, error) {
	query := listActivitiesQuery
	args := []any{workspaceID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		var activityType string
		var raw []byte
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &activityType, &a.LeadID, &a.FollowUpID, &raw, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Type = domain.Type(activityType)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &a.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode activity payload: %w", err)
			}
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

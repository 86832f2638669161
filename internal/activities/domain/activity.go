// Package domain defines the append-only activity record.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the business event an activity describes.
type Type string

const (
	TypeLeadCreated       Type = "LEAD_CREATED"
	TypeLeadStatusUpdated Type = "LEAD_STATUS_UPDATED"
	TypeFollowUpCreated   Type = "FOLLOWUP_CREATED"
	TypeFollowUpDone      Type = "FOLLOWUP_DONE"
	TypeFollowUpCanceled  Type = "FOLLOWUP_CANCELED"
	TypeFollowUpUpdated   Type = "FOLLOWUP_UPDATED"
)

// Activity is one immutable audit entry. LeadID and FollowUpID are optional
// references inside the same workspace.
type Activity struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspaceId"`
	Type        Type           `json:"type"`
	LeadID      *uuid.UUID     `json:"leadId"`
	FollowUpID  *uuid.UUID     `json:"followUpId"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Package domain holds the lead entity and its pipeline statuses.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lead's pipeline position.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusContacted Status = "CONTACTED"
	StatusWon       Status = "WON"
	StatusLost      Status = "LOST"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:       {},
	StatusContacted: {},
	StatusWon:       {},
	StatusLost:      {},
}

// IsValid reports whether s is one of the known pipeline statuses.
func (s Status) IsValid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Lead is a sales prospect owned by a workspace.
type Lead struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       *string   `json:"email"`
	Source      *string   `json:"source"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateFollowUpRequest is the request body for creating a follow-up
type CreateFollowUpRequest struct {
	LeadID      uuid.UUID `json:"leadId" validate:"required"`
	Title       string    `json:"title" validate:"required,notblank,min=2,max=120"`
	Priority    string    `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Notes       *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// CompleteFollowUpRequest is the request body for PATCH /followups/:id/done
type CompleteFollowUpRequest struct {
	Outcome *string `json:"outcome,omitempty" validate:"omitempty,max=1000"`
}

// CancelFollowUpRequest is the request body for PATCH /followups/:id/cancel
type CancelFollowUpRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

// RescheduleFollowUpRequest is the request body for PATCH /followups/:id/reschedule
type RescheduleFollowUpRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Notes       *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// Package statussync moves a lead's pipeline status when one of its follow-ups
// is created, completed or canceled. It runs inside the caller's unit of work
// and records LEAD_STATUS_UPDATED only when the status actually changes.
package statussync

import (
	"context"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	activityservice "crm_backend/internal/activities/service"
	leaddomain "crm_backend/internal/leads/domain"
	"crm_backend/internal/store"

	"github.com/google/uuid"
)

// Event is a follow-up lifecycle event that may move the lead.
type Event string

const (
	EventCreated  Event = "created"
	EventDone     Event = "done"
	EventCanceled Event = "canceled"
)

// rules maps each event to the status the lead is forced into. The target is
// applied regardless of the lead's current status.
var rules = map[Event]leaddomain.Status{
	EventCreated:  leaddomain.StatusContacted,
	EventDone:     leaddomain.StatusWon,
	EventCanceled: leaddomain.StatusLost,
}

// Target returns the lead status event maps to.
func Target(event Event) (leaddomain.Status, bool) {
	status, ok := rules[event]
	return status, ok
}

// Change describes an applied status move.
type Change struct {
	From leaddomain.Status
	To   leaddomain.Status
}

// Syncer applies the rules.
type Syncer struct {
	recorder *activityservice.Recorder
}

func New(recorder *activityservice.Recorder) *Syncer {
	return &Syncer{recorder: recorder}
}

// Apply moves the lead to the event's target status. It returns nil when the
// lead already holds that status or the event has no rule.
func (s *Syncer) Apply(ctx context.Context, tx store.Stores, workspaceID, leadID uuid.UUID, event Event, at time.Time) (*Change, error) {
	target, ok := Target(event)
	if !ok {
		return nil, nil
	}

	lead, err := tx.Leads().GetByID(ctx, workspaceID, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status == target {
		return nil, nil
	}

	if _, err := tx.Leads().UpdateStatus(ctx, workspaceID, leadID, target); err != nil {
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, tx.Activities(), activityservice.Entry{
		WorkspaceID: workspaceID,
		Type:        activitydomain.TypeLeadStatusUpdated,
		LeadID:      &leadID,
		Payload: map[string]any{
			"from": string(lead.Status),
			"to":   string(target),
		},
		At: at,
	}); err != nil {
		return nil, err
	}

	return &Change{From: lead.Status, To: target}, nil
}

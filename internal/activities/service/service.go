package service

import (
	"context"
	"time"

	"crm_backend/internal/activities/domain"
	"crm_backend/internal/store"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Entry describes an activity to record. A zero At uses the recorder clock.
type Entry struct {
	WorkspaceID uuid.UUID
	Type        domain.Type
	LeadID      *uuid.UUID
	FollowUpID  *uuid.UUID
	Payload     map[string]any
	At          time.Time
}

// Recorder appends activities through whatever ActivityStore it is handed,
// normally the one of an open unit of work.
type Recorder struct {
	now   func() time.Time
	newID func() uuid.UUID
}

// NewRecorder creates a Recorder. nil now uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now, newID: newOrderedID}
}

// newOrderedID returns a time-ordered id so entries sharing a timestamp keep
// their append order under the id tie-break of the feed.
func newOrderedID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Record appends one activity and returns it.
func (r *Recorder) Record(ctx context.Context, activities store.ActivityStore, e Entry) (domain.Activity, error) {
	at := e.At
	if at.IsZero() {
		at = r.now()
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	activity := domain.Activity{
		ID:          r.newID(),
		WorkspaceID: e.WorkspaceID,
		Type:        e.Type,
		LeadID:      e.LeadID,
		FollowUpID:  e.FollowUpID,
		Payload:     payload,
		CreatedAt:   at,
	}
	if err := activities.Append(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// Service serves the activity feed.
type Service struct {
	activities store.ActivityStore
}

func New(activities store.ActivityStore) *Service {
	return &Service{activities: activities}
}

// List returns the workspace feed newest first. limit 0 means DefaultListLimit.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID, limit int) ([]domain.Activity, error) {
	switch {
	case limit < 0:
		return nil, apperr.Validation("limit must not be negative")
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	items, err := s.activities.ListByWorkspace(ctx, workspaceID, limit)
	if err != nil {
		return nil, apperr.Internal("failed to list activities", err)
	}
	return items, nil
}

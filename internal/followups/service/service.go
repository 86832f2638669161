// Package service implements the follow-up state machine. Every mutating
// operation runs in one unit of work: the follow-up write, the cascaded lead
// status write and the activity rows commit together or not at all.
package service

import (
	"context"
	"errors"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	activityservice "crm_backend/internal/activities/service"
	"crm_backend/internal/followups/domain"
	"crm_backend/internal/followups/statussync"
	"crm_backend/internal/followups/transport"
	"crm_backend/internal/store"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opCreate     = "followups.create"
	opComplete   = "followups.complete"
	opCancel     = "followups.cancel"
	opReschedule = "followups.reschedule"
	opGet        = "followups.get"
	opListByLead = "followups.list_by_lead"
)

// Service provides the follow-up lifecycle operations.
type Service struct {
	backend  store.Backend
	syncer   *statussync.Syncer
	recorder *activityservice.Recorder
	policy   domain.TransitionPolicy
	log      *logger.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

// New creates a follow-up service.
func New(backend store.Backend, syncer *statussync.Syncer, recorder *activityservice.Recorder, policy domain.TransitionPolicy, log *logger.Logger) *Service {
	return &Service{
		backend:  backend,
		syncer:   syncer,
		recorder: recorder,
		policy:   policy,
		log:      log,
		now:      time.Now,
		newID:    uuid.New,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create schedules a PENDING follow-up for a lead of the workspace.
func (s *Service) Create(ctx context.Context, workspaceID uuid.UUID, req transport.CreateFollowUpRequest) (domain.FollowUp, error) {
	now := s.now()
	followUp, err := domain.New(domain.NewParams{
		ID:          s.newID(),
		WorkspaceID: workspaceID,
		LeadID:      req.LeadID,
		Title:       req.Title,
		Priority:    domain.Priority(req.Priority),
		Notes:       req.Notes,
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   now,
	})
	if err != nil {
		return domain.FollowUp{}, s.fail(ctx, opCreate, err)
	}

	result, err := s.backend.Run(ctx, func(ctx context.Context, tx store.Stores) error {
		if _, err := tx.Leads().GetByID(ctx, workspaceID, followUp.LeadID); err != nil {
			return err
		}
		if err := tx.FollowUps().Create(ctx, followUp); err != nil {
			return err
		}
		if _, err := s.syncer.Apply(ctx, tx, workspaceID, followUp.LeadID, statussync.EventCreated, now); err != nil {
			return err
		}
		return s.record(ctx, tx, followUp, activitydomain.TypeFollowUpCreated, now, map[string]any{
			"scheduledAt": formatTime(followUp.ScheduledAt),
			"title":       followUp.Title,
			"priority":    string(followUp.Priority),
		})
	})
	if err != nil {
		return domain.FollowUp{}, s.fail(ctx, opCreate, err)
	}

	s.logTransition(ctx, opCreate, followUp, result)
	return followUp, nil
}

// Complete marks the follow-up DONE and moves its lead to WON.
func (s *Service) Complete(ctx context.Context, workspaceID, followUpID uuid.UUID, req transport.CompleteFollowUpRequest) (domain.FollowUp, error) {
	now := s.now()
	return s.transition(ctx, opComplete, workspaceID, followUpID, func(ctx context.Context, tx store.Stores, f *domain.FollowUp) error {
		if err := f.Complete(now, req.Outcome, s.policy); err != nil {
			return err
		}
		if err := tx.FollowUps().Update(ctx, *f); err != nil {
			return err
		}
		if err := s.record(ctx, tx, *f, activitydomain.TypeFollowUpDone, now, map[string]any{
			"outcome": optional(f.Outcome),
		}); err != nil {
			return err
		}
		_, err := s.syncer.Apply(ctx, tx, workspaceID, f.LeadID, statussync.EventDone, now)
		return err
	})
}

// Cancel marks the follow-up CANCELED and moves its lead to LOST.
func (s *Service) Cancel(ctx context.Context, workspaceID, followUpID uuid.UUID, req transport.CancelFollowUpRequest) (domain.FollowUp, error) {
	now := s.now()
	return s.transition(ctx, opCancel, workspaceID, followUpID, func(ctx context.Context, tx store.Stores, f *domain.FollowUp) error {
		if err := f.Cancel(now, req.Reason, s.policy); err != nil {
			return err
		}
		if err := tx.FollowUps().Update(ctx, *f); err != nil {
			return err
		}
		if err := s.record(ctx, tx, *f, activitydomain.TypeFollowUpCanceled, now, map[string]any{
			"reason": optional(domain.TrimmedOrNil(req.Reason)),
		}); err != nil {
			return err
		}
		_, err := s.syncer.Apply(ctx, tx, workspaceID, f.LeadID, statussync.EventCanceled, now)
		return err
	})
}

// Reschedule returns the follow-up to PENDING at a new time. The lead status
// is left alone.
func (s *Service) Reschedule(ctx context.Context, workspaceID, followUpID uuid.UUID, req transport.RescheduleFollowUpRequest) (domain.FollowUp, error) {
	now := s.now()
	return s.transition(ctx, opReschedule, workspaceID, followUpID, func(ctx context.Context, tx store.Stores, f *domain.FollowUp) error {
		if err := f.Reschedule(req.ScheduledAt, req.Notes); err != nil {
			return err
		}
		if err := tx.FollowUps().Update(ctx, *f); err != nil {
			return err
		}
		return s.record(ctx, tx, *f, activitydomain.TypeFollowUpUpdated, now, map[string]any{
			"scheduledAt": formatTime(f.ScheduledAt),
			"notes":       optional(f.Notes),
		})
	})
}

// Get returns one follow-up of the workspace.
func (s *Service) Get(ctx context.Context, workspaceID, followUpID uuid.UUID) (domain.FollowUp, error) {
	f, err := s.backend.FollowUps().GetByID(ctx, workspaceID, followUpID)
	if err != nil {
		return domain.FollowUp{}, s.fail(ctx, opGet, err)
	}
	return f, nil
}

// ListByLead returns every follow-up of a lead, earliest first.
func (s *Service) ListByLead(ctx context.Context, workspaceID, leadID uuid.UUID) ([]domain.FollowUp, error) {
	if _, err := s.backend.Leads().GetByID(ctx, workspaceID, leadID); err != nil {
		return nil, s.fail(ctx, opListByLead, err)
	}
	items, err := s.backend.FollowUps().ListByLead(ctx, workspaceID, leadID)
	if err != nil {
		return nil, s.fail(ctx, opListByLead, err)
	}
	return items, nil
}

type mutation func(ctx context.Context, tx store.Stores, f *domain.FollowUp) error

// transition locks the follow-up inside a unit of work and applies fn to it.
// The lock makes the terminal-state check and the write one atomic step.
func (s *Service) transition(ctx context.Context, op string, workspaceID, followUpID uuid.UUID, fn mutation) (domain.FollowUp, error) {
	var updated domain.FollowUp
	result, err := s.backend.Run(ctx, func(ctx context.Context, tx store.Stores) error {
		f, err := tx.FollowUps().GetForUpdate(ctx, workspaceID, followUpID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, &f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return domain.FollowUp{}, s.fail(ctx, op, err)
	}

	s.logTransition(ctx, op, updated, result)
	return updated, nil
}

func (s *Service) record(ctx context.Context, tx store.Stores, f domain.FollowUp, activityType activitydomain.Type, at time.Time, payload map[string]any) error {
	leadID, followUpID := f.LeadID, f.ID
	_, err := s.recorder.Record(ctx, tx.Activities(), activityservice.Entry{
		WorkspaceID: f.WorkspaceID,
		Type:        activityType,
		LeadID:      &leadID,
		FollowUpID:  &followUpID,
		Payload:     payload,
		At:          at,
	})
	return err
}

func (s *Service) logTransition(ctx context.Context, op string, f domain.FollowUp, result store.CommitResult) {
	s.log.WithContext(ctx).FollowUpTransition(op, f.ID.String(), string(f.Status), result.LeadWrites, result.ActivityWrites)
}

// fail maps an error to an apperr kind. Typed errors pass through; anything
// unexpected becomes Internal and is logged.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrInvalidFollowUp):
		return apperr.Validation(err.Error()).WithOp(op)
	case errors.Is(err, domain.ErrTransitionNotAllowed):
		return apperr.Conflict(err.Error()).WithOp(op)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindInternal, "request canceled", err).WithOp(op)
	}
	s.log.WithContext(ctx).DatabaseError(op, err)
	return apperr.Internal("follow-up operation failed", err).WithOp(op)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// optional turns a nil pointer into a JSON null.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

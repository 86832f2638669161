// Package service provides the lead operations the follow-up core relies on:
// create, get and list. Creation records LEAD_CREATED in the same unit of work.
package service

import (
	"context"
	"errors"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	activityservice "crm_backend/internal/activities/service"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/transport"
	"crm_backend/internal/store"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"
	"crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opCreate = "leads.create"
	opGet    = "leads.get"
	opList   = "leads.list"
)

// Service manages leads.
type Service struct {
	backend  store.Backend
	recorder *activityservice.Recorder
	phones   *phone.Normalizer
	log      *logger.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

// New creates a lead service.
func New(backend store.Backend, recorder *activityservice.Recorder, phones *phone.Normalizer, log *logger.Logger) *Service {
	return &Service{
		backend:  backend,
		recorder: recorder,
		phones:   phones,
		log:      log,
		now:      time.Now,
		newID:    uuid.New,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create stores a NEW lead with an E.164 phone when the number parses.
func (s *Service) Create(ctx context.Context, workspaceID uuid.UUID, req transport.CreateLeadRequest) (domain.Lead, error) {
	name := sanitize.Line(req.Name)
	if name == "" {
		return domain.Lead{}, apperr.Validation("name is required").WithOp(opCreate)
	}
	phoneNumber := s.phones.NormalizeE164(req.Phone)
	if phoneNumber == "" {
		return domain.Lead{}, apperr.Validation("phone is required").WithOp(opCreate)
	}

	now := s.now()
	lead := domain.Lead{
		ID:          s.newID(),
		WorkspaceID: workspaceID,
		Name:        name,
		Phone:       phoneNumber,
		Email:       sanitize.TextPtr(req.Email),
		Source:      sanitize.TextPtr(req.Source),
		Status:      domain.StatusNew,
		CreatedAt:   now,
	}

	_, err := s.backend.Run(ctx, func(ctx context.Context, tx store.Stores) error {
		if err := tx.Leads().Create(ctx, lead); err != nil {
			return err
		}
		leadID := lead.ID
		_, err := s.recorder.Record(ctx, tx.Activities(), activityservice.Entry{
			WorkspaceID: workspaceID,
			Type:        activitydomain.TypeLeadCreated,
			LeadID:      &leadID,
			Payload: map[string]any{
				"name":   lead.Name,
				"status": string(lead.Status),
			},
			At: now,
		})
		return err
	})
	if err != nil {
		return domain.Lead{}, s.fail(ctx, opCreate, err)
	}

	s.log.WithContext(ctx).Info("lead created", "leadId", lead.ID.String())
	return lead, nil
}

// Get returns one lead of the workspace.
func (s *Service) Get(ctx context.Context, workspaceID, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.backend.Leads().GetByID(ctx, workspaceID, leadID)
	if err != nil {
		return domain.Lead{}, s.fail(ctx, opGet, err)
	}
	return lead, nil
}

// List returns the workspace's leads, newest first.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Lead, error) {
	leads, err := s.backend.Leads().List(ctx, workspaceID)
	if err != nil {
		return nil, s.fail(ctx, opList, err)
	}
	return leads, nil
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindInternal, "request canceled", err).WithOp(op)
	}
	s.log.WithContext(ctx).DatabaseError(op, err)
	return apperr.Internal("lead operation failed", err).WithOp(op)
}

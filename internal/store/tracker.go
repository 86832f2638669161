package store

import (
	"context"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	followupdomain "crm_backend/internal/followups/domain"
	leaddomain "crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Tracker wraps a transaction's Stores and counts the writes made through it.
// Backends use it to fill CommitResult.
type Tracker struct {
	inner      Stores
	leads      trackedLeads
	followUps  trackedFollowUps
	activities trackedActivities
}

// Track wraps inner.
func Track(inner Stores) *Tracker {
	t := &Tracker{inner: inner}
	t.leads = trackedLeads{LeadStore: inner.Leads()}
	t.followUps = trackedFollowUps{FollowUpStore: inner.FollowUps()}
	t.activities = trackedActivities{ActivityStore: inner.Activities()}
	return t
}

func (t *Tracker) Leads() LeadStore          { return &t.leads }
func (t *Tracker) FollowUps() FollowUpStore  { return &t.followUps }
func (t *Tracker) Activities() ActivityStore { return &t.activities }

// Result builds the CommitResult for a commit at committedAt.
func (t *Tracker) Result(committedAt time.Time) CommitResult {
	return CommitResult{
		CommittedAt:    committedAt,
		FollowUpWrites: t.followUps.writes,
		LeadWrites:     t.leads.writes,
		ActivityWrites: t.activities.writes,
	}
}

type trackedLeads struct {
	LeadStore
	writes int
}

func (s *trackedLeads) Create(ctx context.Context, lead leaddomain.Lead) error {
	if err := s.LeadStore.Create(ctx, lead); err != nil {
		return err
	}
	s.writes++
	return nil
}

func (s *trackedLeads) UpdateStatus(ctx context.Context, workspaceID, leadID uuid.UUID, status leaddomain.Status) (leaddomain.Lead, error) {
	lead, err := s.LeadStore.UpdateStatus(ctx, workspaceID, leadID, status)
	if err != nil {
		return leaddomain.Lead{}, err
	}
	s.writes++
	return lead, nil
}

type trackedFollowUps struct {
	FollowUpStore
	writes int
}

func (s *trackedFollowUps) Create(ctx context.Context, followUp followupdomain.FollowUp) error {
	if err := s.FollowUpStore.Create(ctx, followUp); err != nil {
		return err
	}
	s.writes++
	return nil
}

func (s *trackedFollowUps) Update(ctx context.Context, followUp followupdomain.FollowUp) error {
	if err := s.FollowUpStore.Update(ctx, followUp); err != nil {
		return err
	}
	s.writes++
	return nil
}

type trackedActivities struct {
	ActivityStore
	writes int
}

func (s *trackedActivities) Append(ctx context.Context, activity activitydomain.Activity) error {
	if err := s.ActivityStore.Append(ctx, activity); err != nil {
		return err
	}
	s.writes++
	return nil
}

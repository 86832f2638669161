// Package memory implements store.Backend in process. Run works on a private
// copy of the committed state and swaps it in on success, so a failing unit
// of work leaves nothing behind.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	followupdomain "crm_backend/internal/followups/domain"
	leaddomain "crm_backend/internal/leads/domain"
	"crm_backend/internal/store"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Operation names passed to a FailureFunc.
const (
	OpLeadCreate       = "leads.create"
	OpLeadUpdateStatus = "leads.update_status"
	OpFollowUpCreate   = "followups.create"
	OpFollowUpUpdate   = "followups.update"
	OpActivityAppend   = "activities.append"
)

// FailureFunc is consulted before every write made inside Run. A non-nil
// return fails that write.
type FailureFunc func(op string) error

// Store is the in-memory backend.
type Store struct {
	mu      sync.RWMutex
	state   *state
	failure FailureFunc
	now     func() time.Time
}

var _ store.Backend = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// InjectFailure installs fn for subsequent units of work. nil clears it.
func (s *Store) InjectFailure(fn FailureFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = fn
}

// Run serializes units of work. fn sees a copy of the committed state; the
// copy replaces it only when fn returns nil.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) (store.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return store.CommitResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	tracker := store.Track(&view{state: draft, failure: s.failure})
	if err := fn(ctx, tracker); err != nil {
		return store.CommitResult{}, err
	}

	s.state = draft
	return tracker.Result(s.now()), nil
}

func (s *Store) Leads() store.LeadStore          { return committedLeads{reader{s}} }
func (s *Store) FollowUps() store.FollowUpStore  { return committedFollowUps{reader{s}} }
func (s *Store) Activities() store.ActivityStore { return committedActivities{reader{s}} }

// state is one snapshot of all three tables.
type state struct {
	leads      map[uuid.UUID]leaddomain.Lead
	followUps  map[uuid.UUID]followupdomain.FollowUp
	activities []activitydomain.Activity
}

func newState() *state {
	return &state{
		leads:     make(map[uuid.UUID]leaddomain.Lead),
		followUps: make(map[uuid.UUID]followupdomain.FollowUp),
	}
}

// clone copies the maps and the activity slice header. Entities are values,
// so the copy can be mutated freely; activities are only ever appended.
func (st *state) clone() *state {
	next := &state{
		leads:      make(map[uuid.UUID]leaddomain.Lead, len(st.leads)),
		followUps:  make(map[uuid.UUID]followupdomain.FollowUp, len(st.followUps)),
		activities: append([]activitydomain.Activity(nil), st.activities...),
	}
	for id, lead := range st.leads {
		next.leads[id] = lead
	}
	for id, f := range st.followUps {
		next.followUps[id] = f
	}
	return next
}

// view exposes a state through the store interfaces.
type view struct {
	state   *state
	failure FailureFunc
}

func (v *view) Leads() store.LeadStore          { return viewLeads{v} }
func (v *view) FollowUps() store.FollowUpStore  { return viewFollowUps{v} }
func (v *view) Activities() store.ActivityStore { return viewActivities{v} }

func (v *view) fail(op string) error {
	if v.failure == nil {
		return nil
	}
	return v.failure(op)
}

func (v *view) lead(workspaceID, leadID uuid.UUID) (leaddomain.Lead, error) {
	lead, ok := v.state.leads[leadID]
	if !ok || lead.WorkspaceID != workspaceID {
		return leaddomain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (v *view) followUp(workspaceID, followUpID uuid.UUID) (followupdomain.FollowUp, error) {
	f, ok := v.state.followUps[followUpID]
	if !ok || f.WorkspaceID != workspaceID {
		return followupdomain.FollowUp{}, apperr.NotFound("follow-up not found")
	}
	return f, nil
}

type viewLeads struct{ *view }

func (v viewLeads) Create(_ context.Context, lead leaddomain.Lead) error {
	if err := v.fail(OpLeadCreate); err != nil {
		return err
	}
	if _, exists := v.state.leads[lead.ID]; exists {
		return fmt.Errorf("lead %s already exists", lead.ID)
	}
	v.state.leads[lead.ID] = lead
	return nil
}

func (v viewLeads) GetByID(_ context.Context, workspaceID, leadID uuid.UUID) (leaddomain.Lead, error) {
	return v.lead(workspaceID, leadID)
}

func (v viewLeads) UpdateStatus(_ context.Context, workspaceID, leadID uuid.UUID, status leaddomain.Status) (leaddomain.Lead, error) {
	if err := v.fail(OpLeadUpdateStatus); err != nil {
		return leaddomain.Lead{}, err
	}
	lead, err := v.lead(workspaceID, leadID)
	if err != nil {
		return leaddomain.Lead{}, err
	}
	lead.Status = status
	v.state.leads[leadID] = lead
	return lead, nil
}

func (v viewLeads) List(_ context.Context, workspaceID uuid.UUID) ([]leaddomain.Lead, error) {
	items := make([]leaddomain.Lead, 0)
	for _, lead := range v.state.leads {
		if lead.WorkspaceID == workspaceID {
			items = append(items, lead)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

type viewFollowUps struct{ *view }

func (v viewFollowUps) Create(_ context.Context, f followupdomain.FollowUp) error {
	if err := v.fail(OpFollowUpCreate); err != nil {
		return err
	}
	if _, err := v.lead(f.WorkspaceID, f.LeadID); err != nil {
		return err
	}
	if _, exists := v.state.followUps[f.ID]; exists {
		return fmt.Errorf("follow-up %s already exists", f.ID)
	}
	v.state.followUps[f.ID] = f
	return nil
}

func (v viewFollowUps) GetByID(_ context.Context, workspaceID, followUpID uuid.UUID) (followupdomain.FollowUp, error) {
	return v.followUp(workspaceID, followUpID)
}

// GetForUpdate needs no lock of its own: Run already holds the write lock.
func (v viewFollowUps) GetForUpdate(_ context.Context, workspaceID, followUpID uuid.UUID) (followupdomain.FollowUp, error) {
	return v.followUp(workspaceID, followUpID)
}

func (v viewFollowUps) Update(_ context.Context, f followupdomain.FollowUp) error {
	if err := v.fail(OpFollowUpUpdate); err != nil {
		return err
	}
	current, err := v.followUp(f.WorkspaceID, f.ID)
	if err != nil {
		return err
	}
	// Only the lifecycle columns are mutable.
	current.Notes = f.Notes
	current.Status = f.Status
	current.ScheduledAt = f.ScheduledAt
	current.DoneAt = f.DoneAt
	current.CanceledAt = f.CanceledAt
	current.Outcome = f.Outcome
	v.state.followUps[f.ID] = current
	return nil
}

func (v viewFollowUps) ListByLead(_ context.Context, workspaceID, leadID uuid.UUID) ([]followupdomain.FollowUp, error) {
	items := make([]followupdomain.FollowUp, 0)
	for _, f := range v.state.followUps {
		if f.WorkspaceID == workspaceID && f.LeadID == leadID {
			items = append(items, f)
		}
	}
	sortBySchedule(items, func(i int) followupdomain.FollowUp { return items[i] })
	return items, nil
}

func (v viewFollowUps) ListPending(_ context.Context, workspaceID uuid.UUID, window followupdomain.Window) ([]followupdomain.WithLead, error) {
	items := make([]followupdomain.WithLead, 0)
	for _, f := range v.state.followUps {
		if f.WorkspaceID != workspaceID || f.Status != followupdomain.StatusPending {
			continue
		}
		if !window.Contains(f.ScheduledAt) {
			continue
		}
		lead, err := v.lead(workspaceID, f.LeadID)
		if err != nil {
			continue
		}
		items = append(items, followupdomain.WithLead{
			FollowUp: f,
			Lead: followupdomain.LeadSummary{
				ID:     lead.ID,
				Name:   lead.Name,
				Phone:  lead.Phone,
				Status: string(lead.Status),
			},
		})
	}
	sortBySchedule(items, func(i int) followupdomain.FollowUp { return items[i].FollowUp })
	return items, nil
}

func sortBySchedule[T any](items []T, at func(i int) followupdomain.FollowUp) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := at(i), at(j)
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

type viewActivities struct{ *view }

func (v viewActivities) Append(_ context.Context, a activitydomain.Activity) error {
	if err := v.fail(OpActivityAppend); err != nil {
		return err
	}
	if a.LeadID != nil {
		if _, err := v.lead(a.WorkspaceID, *a.LeadID); err != nil {
			return fmt.Errorf("activity references unknown lead: %w", err)
		}
	}
	if a.FollowUpID != nil {
		if _, err := v.followUp(a.WorkspaceID, *a.FollowUpID); err != nil {
			return fmt.Errorf("activity references unknown follow-up: %w", err)
		}
	}
	v.state.activities = append(v.state.activities, a)
	return nil
}

// ListByWorkspace returns newest first, ties broken by id descending.
func (v viewActivities) ListByWorkspace(_ context.Context, workspaceID uuid.UUID, limit int) ([]activitydomain.Activity, error) {
	items := make([]activitydomain.Activity, 0)
	for _, a := range v.state.activities {
		if a.WorkspaceID == workspaceID {
			items = append(items, a)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return bytes.Compare(items[i].ID[:], items[j].ID[:]) > 0
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Committed reads take the read lock and query the current state.

var errWriteOutsideRun = fmt.Errorf("memory: writes must go through Run")

type reader struct{ s *Store }

// read must be called with the read lock held.
func (r reader) read() *view {
	return &view{state: r.s.state}
}

type committedLeads struct{ reader }

func (c committedLeads) Create(context.Context, leaddomain.Lead) error {
	return errWriteOutsideRun
}

func (c committedLeads) GetByID(ctx context.Context, workspaceID, leadID uuid.UUID) (leaddomain.Lead, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return viewLeads{c.read()}.GetByID(ctx, workspaceID, leadID)
}

func (c committedLeads) UpdateStatus(context.Context, uuid.UUID, uuid.UUID, leaddomain.Status) (leaddomain.Lead, error) {
	return leaddomain.Lead{}, errWriteOutsideRun
}

func (c committedLeads) List(ctx context.Context, workspaceID uuid.UUID) ([]leaddomain.Lead, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return viewLeads{c.read()}.List(ctx, workspaceID)
}

type committedFollowUps struct{ reader }

func (c committedFollowUps) Create(context.Context, followupdomain.FollowUp) error {
	return errWriteOutsideRun
}

func (c committedFollowUps) GetByID(ctx context.Context, workspaceID, followUpID uuid.UUID) (followupdomain.FollowUp, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return viewFollowUps{c.read()}.GetByID(ctx, workspaceID, followUpID)
}

func (c committedFollowUps) GetForUpdate(context.Context, uuid.UUID, uuid.UUID) (followupdomain.FollowUp, error) {
	return followupdomain.FollowUp{}, errWriteOutsideRun
}

func (c committedFollowUps) Update(context.Context, followupdomain.FollowUp) error {
	return errWriteOutsideRun
}

func (c committedFollowUps) ListByLead(ctx context.Context, workspaceID, leadID uuid.UUID) ([]followupdomain.FollowUp, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return viewFollowUps{c.read()}.ListByLead(ctx, workspaceID, leadID)
}

func (c committedFollowUps) ListPending(ctx context.Context, workspaceID uuid.UUID, window followupdomain.Window) ([]followupdomain.WithLead, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return viewFollowUps{c.read()}.ListPending(ctx, workspaceID, window)
}

type committedActivities struct{ reader }

func (c committedActivities) Append(context.Context, activitydomain.Activity) error {
	return errWriteOutsideRun
}

func (c committedActivities) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]activitydomain.Activity, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return viewActivities{c.read()}.ListByWorkspace(ctx, workspaceID, limit)
}

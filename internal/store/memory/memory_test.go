package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	followupdomain "crm_backend/internal/followups/domain"
	leaddomain "crm_backend/internal/leads/domain"
	"crm_backend/internal/store"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

func seedLead(t *testing.T, s *Store, workspaceID uuid.UUID) leaddomain.Lead {
	t.Helper()
	lead := leaddomain.Lead{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        "Maria",
		Phone:       "+5511999990000",
		Status:      leaddomain.StatusNew,
		CreatedAt:   time.Now(),
	}
	_, err := s.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		return tx.Leads().Create(ctx, lead)
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead
}

func TestRunCommitsAndCountsWrites(t *testing.T) {
	s := New()
	ws := uuid.New()
	lead := seedLead(t, s, ws)

	result, err := s.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		if _, err := tx.Leads().UpdateStatus(ctx, ws, lead.ID, leaddomain.StatusContacted); err != nil {
			return err
		}
		leadID := lead.ID
		return tx.Activities().Append(ctx, activitydomain.Activity{
			ID:          uuid.New(),
			WorkspaceID: ws,
			Type:        activitydomain.TypeLeadStatusUpdated,
			LeadID:      &leadID,
			CreatedAt:   time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.LeadWrites != 1 || result.ActivityWrites != 1 || result.FollowUpWrites != 0 {
		t.Fatalf("unexpected commit result: %+v", result)
	}

	got, err := s.Leads().GetByID(context.Background(), ws, lead.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != leaddomain.StatusContacted {
		t.Fatalf("expected CONTACTED, got %s", got.Status)
	}
}

func TestRunRollsBackOnError(t *testing.T) {
	s := New()
	ws := uuid.New()
	lead := seedLead(t, s, ws)
	boom := errors.New("boom")

	_, err := s.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		if _, err := tx.Leads().UpdateStatus(ctx, ws, lead.ID, leaddomain.StatusWon); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.Leads().GetByID(context.Background(), ws, lead.ID)
	if got.Status != leaddomain.StatusNew {
		t.Fatalf("rolled back write is visible: %s", got.Status)
	}
}

func TestInjectFailureAbortsWrite(t *testing.T) {
	s := New()
	ws := uuid.New()
	lead := seedLead(t, s, ws)
	injected := errors.New("disk full")
	s.InjectFailure(func(op string) error {
		if op == OpActivityAppend {
			return injected
		}
		return nil
	})

	_, err := s.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		if _, err := tx.Leads().UpdateStatus(ctx, ws, lead.ID, leaddomain.StatusLost); err != nil {
			return err
		}
		return tx.Activities().Append(ctx, activitydomain.Activity{ID: uuid.New(), WorkspaceID: ws, CreatedAt: time.Now()})
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	got, _ := s.Leads().GetByID(context.Background(), ws, lead.ID)
	if got.Status != leaddomain.StatusNew {
		t.Fatalf("expected NEW after rollback, got %s", got.Status)
	}
	activities, _ := s.Activities().ListByWorkspace(context.Background(), ws, 0)
	if len(activities) != 0 {
		t.Fatalf("expected no activities, got %d", len(activities))
	}
}

func TestLookupsAreWorkspaceScoped(t *testing.T) {
	s := New()
	ws := uuid.New()
	other := uuid.New()
	lead := seedLead(t, s, ws)

	if _, err := s.Leads().GetByID(context.Background(), other, lead.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound for foreign workspace, got %v", err)
	}

	_, err := s.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		return tx.FollowUps().Create(ctx, followupdomain.FollowUp{
			ID:          uuid.New(),
			WorkspaceID: other,
			LeadID:      lead.ID,
			Title:       "Call",
			Priority:    followupdomain.PriorityMedium,
			Status:      followupdomain.StatusPending,
			ScheduledAt: time.Now(),
		})
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound when linking a foreign lead, got %v", err)
	}
}

func TestListPendingFiltersAndOrders(t *testing.T) {
	s := New()
	ws := uuid.New()
	lead := seedLead(t, s, ws)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mk := func(offset time.Duration, status followupdomain.Status) followupdomain.FollowUp {
		f := followupdomain.FollowUp{
			ID:          uuid.New(),
			WorkspaceID: ws,
			LeadID:      lead.ID,
			Title:       "Call",
			Priority:    followupdomain.PriorityMedium,
			Status:      status,
			ScheduledAt: base.Add(offset),
			CreatedAt:   base,
		}
		if status == followupdomain.StatusDone {
			done := base
			f.DoneAt = &done
		}
		return f
	}
	later := mk(2*time.Hour, followupdomain.StatusPending)
	earlier := mk(time.Hour, followupdomain.StatusPending)
	done := mk(90*time.Minute, followupdomain.StatusDone)
	outside := mk(48*time.Hour, followupdomain.StatusPending)

	_, err := s.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		for _, f := range []followupdomain.FollowUp{later, earlier, done, outside} {
			if err := tx.FollowUps().Create(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed follow-ups: %v", err)
	}

	items, err := s.FollowUps().ListPending(context.Background(), ws, followupdomain.Window{From: base, To: base.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 pending items, got %d", len(items))
	}
	if items[0].ID != earlier.ID || items[1].ID != later.ID {
		t.Fatal("expected ascending scheduledAt order")
	}
	if items[0].Lead.Name != lead.Name {
		t.Fatalf("expected joined lead name, got %q", items[0].Lead.Name)
	}
}

func TestCommittedStoresRejectWrites(t *testing.T) {
	s := New()
	if err := s.Leads().Create(context.Background(), leaddomain.Lead{ID: uuid.New()}); !errors.Is(err, errWriteOutsideRun) {
		t.Fatalf("expected errWriteOutsideRun, got %v", err)
	}
	if _, err := s.FollowUps().GetForUpdate(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, errWriteOutsideRun) {
		t.Fatalf("expected locked read outside Run to fail, got %v", err)
	}
}

func TestGetForUpdateInsideRun(t *testing.T) {
	s := New()
	ws := uuid.New()
	lead := seedLead(t, s, ws)
	f := followupdomain.FollowUp{
		ID:          uuid.New(),
		WorkspaceID: ws,
		LeadID:      lead.ID,
		Title:       "Call",
		Priority:    followupdomain.PriorityMedium,
		Status:      followupdomain.StatusPending,
		ScheduledAt: time.Now(),
	}

	_, err := s.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		if err := tx.FollowUps().Create(ctx, f); err != nil {
			return err
		}
		got, err := tx.FollowUps().GetForUpdate(ctx, ws, f.ID)
		if err != nil {
			return err
		}
		if got.ID != f.ID {
			t.Fatalf("unexpected follow-up %s", got.ID)
		}
		if _, err := tx.FollowUps().GetForUpdate(ctx, uuid.New(), f.ID); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("expected NotFound for foreign workspace, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

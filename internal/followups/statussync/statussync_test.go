package statussync

import (
	"context"
	"testing"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	activityservice "crm_backend/internal/activities/service"
	leaddomain "crm_backend/internal/leads/domain"
	"crm_backend/internal/store"
	"crm_backend/internal/store/memory"

	"github.com/google/uuid"
)

func seed(t *testing.T, status leaddomain.Status) (*memory.Store, leaddomain.Lead) {
	t.Helper()
	backend := memory.New()
	lead := leaddomain.Lead{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		Name:        "Joao",
		Phone:       "+5511988887777",
		Status:      status,
		CreatedAt:   time.Now(),
	}
	if _, err := backend.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
		return tx.Leads().Create(ctx, lead)
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return backend, lead
}

func TestApplyRules(t *testing.T) {
	tests := []struct {
		name       string
		current    leaddomain.Status
		event      Event
		want       leaddomain.Status
		wantChange bool
	}{
		{"created moves new lead", leaddomain.StatusNew, EventCreated, leaddomain.StatusContacted, true},
		{"created on contacted is a no-op", leaddomain.StatusContacted, EventCreated, leaddomain.StatusContacted, false},
		{"created reopens won lead", leaddomain.StatusWon, EventCreated, leaddomain.StatusContacted, true},
		{"done wins lead", leaddomain.StatusContacted, EventDone, leaddomain.StatusWon, true},
		{"done on won is a no-op", leaddomain.StatusWon, EventDone, leaddomain.StatusWon, false},
		{"canceled loses lead", leaddomain.StatusContacted, EventCanceled, leaddomain.StatusLost, true},
		{"canceled overrides won", leaddomain.StatusWon, EventCanceled, leaddomain.StatusLost, true},
		{"unknown event", leaddomain.StatusNew, Event("rescheduled"), leaddomain.StatusNew, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, lead := seed(t, tt.current)
			syncer := New(activityservice.NewRecorder(nil))

			var change *Change
			result, err := backend.Run(context.Background(), func(ctx context.Context, tx store.Stores) error {
				var err error
				change, err = syncer.Apply(ctx, tx, lead.WorkspaceID, lead.ID, tt.event, time.Now())
				return err
			})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			if (change != nil) != tt.wantChange {
				t.Fatalf("expected change=%v, got %+v", tt.wantChange, change)
			}

			got, _ := backend.Leads().GetByID(context.Background(), lead.WorkspaceID, lead.ID)
			if got.Status != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got.Status)
			}

			activities, _ := backend.Activities().ListByWorkspace(context.Background(), lead.WorkspaceID, 0)
			wantActivities := 0
			if tt.wantChange {
				wantActivities = 1
			}
			if len(activities) != wantActivities || result.ActivityWrites != wantActivities {
				t.Fatalf("expected %d activities, got %d", wantActivities, len(activities))
			}
			if tt.wantChange {
				a := activities[0]
				if a.Type != activitydomain.TypeLeadStatusUpdated {
					t.Fatalf("unexpected activity type %s", a.Type)
				}
				if a.Payload["from"] != string(tt.current) || a.Payload["to"] != string(tt.want) {
					t.Fatalf("unexpected payload %+v", a.Payload)
				}
				if a.LeadID == nil || *a.LeadID != lead.ID {
					t.Fatal("activity must reference the lead")
				}
			}
		})
	}
}

package repository

import (
	"strings"
	"testing"
	"time"

	"crm_backend/internal/followups/domain"

	"github.com/google/uuid"
)

func TestFollowUpQueriesAreWorkspaceScoped(t *testing.T) {
	queries := map[string]string{
		"get":        getFollowUpQuery,
		"get locked": getFollowUpForUpdateQuery,
		"update":     updateFollowUpQuery,
		"by lead":    listByLeadQuery,
		"pending":    listPendingBaseQuery,
	}

	for name, query := range queries {
		if !strings.Contains(strings.ToLower(query), "workspace_id = $") {
			t.Fatalf("%s query must filter by workspace: %s", name, query)
		}
	}
}

func TestGetForUpdateLocksRow(t *testing.T) {
	query := strings.ToLower(getFollowUpForUpdateQuery)
	if !strings.HasSuffix(strings.TrimSpace(query), "for update") {
		t.Fatalf("lookup must end with FOR UPDATE: %s", getFollowUpForUpdateQuery)
	}
	if strings.Contains(strings.ToLower(getFollowUpQuery), "for update") {
		t.Fatal("plain lookup must not lock")
	}
}

func TestBuildListPendingQueryBounds(t *testing.T) {
	ws := uuid.New()
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	tests := []struct {
		name     string
		window   domain.Window
		contains []string
		absent   []string
		args     int
	}{
		{
			name:     "overdue",
			window:   domain.Window{To: from, ToOpen: true},
			contains: []string{"f.scheduled_at < $2"},
			absent:   []string{"f.scheduled_at >"},
			args:     2,
		},
		{
			name:     "closed range",
			window:   domain.Window{From: from, To: to},
			contains: []string{"f.scheduled_at >= $2", "f.scheduled_at <= $3"},
			args:     3,
		},
		{
			name:     "open lower bound",
			window:   domain.Window{From: from, FromOpen: true, To: to},
			contains: []string{"f.scheduled_at > $2", "f.scheduled_at <= $3"},
			args:     3,
		},
		{
			name:   "unbounded",
			window: domain.Window{},
			absent: []string{"f.scheduled_at <", "f.scheduled_at >"},
			args:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListPendingQuery(ws, tt.window)
			if len(args) != tt.args {
				t.Fatalf("expected %d args, got %d", tt.args, len(args))
			}
			for _, part := range tt.contains {
				if !strings.Contains(query, part) {
					t.Fatalf("expected %q in query: %s", part, query)
				}
			}
			for _, part := range tt.absent {
				if strings.Contains(query, part) {
					t.Fatalf("unexpected %q in query: %s", part, query)
				}
			}
			if !strings.HasSuffix(query, "ORDER BY f.scheduled_at ASC, f.created_at ASC") {
				t.Fatalf("query must order by scheduled_at: %s", query)
			}
		})
	}
}

package repository

import (
	"strings"
	"testing"
)

func TestLeadQueriesAreWorkspaceScoped(t *testing.T) {
	queries := map[string]string{
		"get":           getLeadQuery,
		"update status": updateLeadStatusQuery,
	}

	for name, query := range queries {
		normalized := strings.ToLower(query)
		if !strings.Contains(normalized, "where id = $1 and workspace_id = $2") {
			t.Fatalf("%s query must filter by id and workspace: %s", name, query)
		}
	}

	if !strings.Contains(strings.ToLower(listLeadsQuery), "where workspace_id = $1") {
		t.Fatal("list query must filter by workspace")
	}
}

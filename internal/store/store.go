// Package store defines the persistence ports shared by the lead, follow-up
// and activity modules, plus the Unit of Work that makes a follow-up write,
// its cascaded lead status write and its activity rows commit together.
//
// Two backends implement it: store/postgres (pgx transactions) and
// store/memory (copy-on-write snapshot, used by service tests).
package store

import (
	"context"
	"time"

	activitydomain "crm_backend/internal/activities/domain"
	followupdomain "crm_backend/internal/followups/domain"
	leaddomain "crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadStore persists leads. Every lookup is workspace scoped and returns
// apperr.NotFound for a lead of another workspace.
type LeadStore interface {
	Create(ctx context.Context, lead leaddomain.Lead) error
	GetByID(ctx context.Context, workspaceID, leadID uuid.UUID) (leaddomain.Lead, error)
	UpdateStatus(ctx context.Context, workspaceID, leadID uuid.UUID, status leaddomain.Status) (leaddomain.Lead, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]leaddomain.Lead, error)
}

// FollowUpStore persists follow-ups. There is no delete.
type FollowUpStore interface {
	Create(ctx context.Context, followUp followupdomain.FollowUp) error
	GetByID(ctx context.Context, workspaceID, followUpID uuid.UUID) (followupdomain.FollowUp, error)
	// GetForUpdate is GetByID holding a row lock until the unit of work ends,
	// so concurrent transitions of one follow-up serialize.
	GetForUpdate(ctx context.Context, workspaceID, followUpID uuid.UUID) (followupdomain.FollowUp, error)
	Update(ctx context.Context, followUp followupdomain.FollowUp) error
	ListByLead(ctx context.Context, workspaceID, leadID uuid.UUID) ([]followupdomain.FollowUp, error)
	// ListPending returns PENDING follow-ups whose scheduledAt falls in window,
	// ordered by scheduledAt ascending.
	ListPending(ctx context.Context, workspaceID uuid.UUID, window followupdomain.Window) ([]followupdomain.WithLead, error)
}

// ActivityStore is append-only.
type ActivityStore interface {
	Append(ctx context.Context, activity activitydomain.Activity) error
	// ListByWorkspace returns activities newest first. limit <= 0 means no limit.
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]activitydomain.Activity, error)
}

// Stores groups the stores visible inside one unit of work.
type Stores interface {
	Leads() LeadStore
	FollowUps() FollowUpStore
	Activities() ActivityStore
}

// CommitResult describes a committed unit of work.
type CommitResult struct {
	CommittedAt    time.Time
	FollowUpWrites int
	LeadWrites     int
	ActivityWrites int
}

// UnitOfWork runs fn atomically: every write fn makes through the given
// Stores becomes visible on commit, or none does. A non-nil error from fn
// rolls back and is returned unchanged.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx Stores) error) (CommitResult, error)
}

// Backend is a storage implementation: atomic writes through Run and plain
// reads through the embedded Stores.
type Backend interface {
	UnitOfWork
	Stores
}

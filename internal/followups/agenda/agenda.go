// Package agenda answers the windowed follow-up views. All three windows are
// computed from one instant and never overlap:
//
//	overdue   scheduledAt <  now
//	today     now <= scheduledAt <  next local midnight
//	upcoming  next local midnight <= scheduledAt <= now + horizon
//
// Only PENDING follow-ups are returned, earliest first.
package agenda

import (
	"context"
	"time"

	"crm_backend/internal/followups/domain"
	"crm_backend/internal/store"
	"crm_backend/platform/apperr"
	"crm_backend/platform/config"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultHorizonDays bounds the upcoming window when config leaves it unset.
const DefaultHorizonDays = 7

// Windows holds the three ranges for one instant.
type Windows struct {
	Now      time.Time
	Overdue  domain.Window
	Today    domain.Window
	Upcoming domain.Window
}

// Snapshot is the full agenda at one instant.
type Snapshot struct {
	Now      time.Time         `json:"now"`
	Overdue  []domain.WithLead `json:"overdue"`
	Today    []domain.WithLead `json:"today"`
	Upcoming []domain.WithLead `json:"upcoming"`
}

// Engine runs agenda queries.
type Engine struct {
	followUps   store.FollowUpStore
	location    *time.Location
	horizonDays int
	now         func() time.Time
}

// New creates an Engine reading through followUps.
func New(followUps store.FollowUpStore, cfg config.AgendaConfig) *Engine {
	location := cfg.GetAgendaLocation()
	if location == nil {
		location = time.UTC
	}
	horizon := cfg.GetAgendaUpcomingDays()
	if horizon < 1 {
		horizon = DefaultHorizonDays
	}
	return &Engine{
		followUps:   followUps,
		location:    location,
		horizonDays: horizon,
		now:         time.Now,
	}
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// WindowsAt computes the three ranges for now.
func (e *Engine) WindowsAt(now time.Time) Windows {
	local := now.In(e.location)
	y, m, d := local.Date()
	// The local day ends right before the next local midnight.
	nextMidnight := time.Date(y, m, d+1, 0, 0, 0, 0, e.location)
	horizon := now.Add(time.Duration(e.horizonDays) * 24 * time.Hour)
	// A local day can run past 24h on a DST change.
	if horizon.Before(nextMidnight) {
		horizon = nextMidnight
	}

	return Windows{
		Now:      now,
		Overdue:  domain.Window{To: now, ToOpen: true},
		Today:    domain.Window{From: now, To: nextMidnight, ToOpen: true},
		Upcoming: domain.Window{From: nextMidnight, To: horizon},
	}
}

// Today returns PENDING follow-ups due from now until the end of the local day.
func (e *Engine) Today(ctx context.Context, workspaceID uuid.UUID) ([]domain.WithLead, error) {
	return e.list(ctx, workspaceID, e.WindowsAt(e.now()).Today)
}

// Overdue returns PENDING follow-ups scheduled before now.
func (e *Engine) Overdue(ctx context.Context, workspaceID uuid.UUID) ([]domain.WithLead, error) {
	return e.list(ctx, workspaceID, e.WindowsAt(e.now()).Overdue)
}

// Upcoming returns PENDING follow-ups after today and within the horizon.
func (e *Engine) Upcoming(ctx context.Context, workspaceID uuid.UUID) ([]domain.WithLead, error) {
	return e.list(ctx, workspaceID, e.WindowsAt(e.now()).Upcoming)
}

// Snapshot reads all three windows concurrently against a single now.
func (e *Engine) Snapshot(ctx context.Context, workspaceID uuid.UUID) (Snapshot, error) {
	windows := e.WindowsAt(e.now())
	snapshot := Snapshot{Now: windows.Now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := e.list(gctx, workspaceID, windows.Overdue)
		snapshot.Overdue = items
		return err
	})
	g.Go(func() error {
		items, err := e.list(gctx, workspaceID, windows.Today)
		snapshot.Today = items
		return err
	})
	g.Go(func() error {
		items, err := e.list(gctx, workspaceID, windows.Upcoming)
		snapshot.Upcoming = items
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

func (e *Engine) list(ctx context.Context, workspaceID uuid.UUID, window domain.Window) ([]domain.WithLead, error) {
	items, err := e.followUps.ListPending(ctx, workspaceID, window)
	if err != nil {
		return nil, apperr.Internal("failed to load agenda", err)
	}
	return items, nil
}

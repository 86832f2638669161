// Package domain contains the follow-up entity and its lifecycle rules.
//
// Status is an explicit enum. DoneAt, CanceledAt and Outcome are only
// meaningful for the variant that owns them, and Validate enforces that
// pairing before every write:
//
//	PENDING   doneAt=nil  canceledAt=nil  outcome=nil
//	DONE      doneAt!=nil canceledAt=nil  outcome optional
//	CANCELED  doneAt=nil  canceledAt!=nil outcome set (reason or marker)
//
// PENDING moves to DONE (Complete) or CANCELED (Cancel). Reschedule is the only
// way back to PENDING.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a follow-up.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusDone     Status = "DONE"
	StatusCanceled Status = "CANCELED"
)

// IsTerminal reports whether only Reschedule can leave the status.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusCanceled
}

// Priority ranks follow-ups inside an agenda.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Title bounds, counted in runes after trimming.
const (
	MinTitleLength = 2
	MaxTitleLength = 120
)

// CanceledMarker is stored as the outcome when a cancel carries no reason.
const CanceledMarker = "Canceled"

// TransitionPolicy decides whether Complete and Cancel may overwrite a
// follow-up that already left PENDING.
type TransitionPolicy int

const (
	// PolicyPermissive overwrites any state (force semantics).
	PolicyPermissive TransitionPolicy = iota
	// PolicyStrict rejects Complete/Cancel on DONE or CANCELED follow-ups.
	PolicyStrict
)

var (
	// ErrInvalidFollowUp is returned by Validate when a follow-up breaks an invariant.
	ErrInvalidFollowUp = errors.New("invalid follow-up")
	// ErrTransitionNotAllowed is returned under PolicyStrict.
	ErrTransitionNotAllowed = errors.New("follow-up transition not allowed")
)

// FollowUp is a scheduled contact task attached to a lead.
type FollowUp struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspaceId"`
	LeadID      uuid.UUID  `json:"leadId"`
	Title       string     `json:"title"`
	Priority    Priority   `json:"priority"`
	Notes       *string    `json:"notes"`
	Status      Status     `json:"status"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	DoneAt      *time.Time `json:"doneAt"`
	CanceledAt  *time.Time `json:"canceledAt"`
	Outcome     *string    `json:"outcome"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewParams carries the inputs of a new follow-up.
type NewParams struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	LeadID      uuid.UUID
	Title       string
	Priority    Priority
	Notes       *string
	ScheduledAt time.Time
	CreatedAt   time.Time
}

// New builds a PENDING follow-up. An empty priority defaults to MEDIUM.
func New(p NewParams) (FollowUp, error) {
	priority := p.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	f := FollowUp{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		LeadID:      p.LeadID,
		Title:       strings.TrimSpace(p.Title),
		Priority:    priority,
		Notes:       TrimmedOrNil(p.Notes),
		Status:      StatusPending,
		ScheduledAt: p.ScheduledAt,
		CreatedAt:   p.CreatedAt,
	}
	if err := f.Validate(); err != nil {
		return FollowUp{}, err
	}
	return f, nil
}

// Complete moves the follow-up to DONE.
func (f *FollowUp) Complete(now time.Time, outcome *string, policy TransitionPolicy) error {
	if err := f.checkTransition(StatusDone, policy); err != nil {
		return err
	}
	f.Status = StatusDone
	f.DoneAt = &now
	f.CanceledAt = nil
	f.Outcome = TrimmedOrNil(outcome)
	return f.Validate()
}

// Cancel moves the follow-up to CANCELED. The outcome is the trimmed reason,
// or CanceledMarker when none was given.
func (f *FollowUp) Cancel(now time.Time, reason *string, policy TransitionPolicy) error {
	if err := f.checkTransition(StatusCanceled, policy); err != nil {
		return err
	}
	outcome := TrimmedOrNil(reason)
	if outcome == nil {
		marker := CanceledMarker
		outcome = &marker
	}
	f.Status = StatusCanceled
	f.CanceledAt = &now
	f.DoneAt = nil
	f.Outcome = outcome
	return f.Validate()
}

// Reschedule returns the follow-up to PENDING at a new time. nil notes keep
// the current notes; blank notes clear them. Allowed from every status.
func (f *FollowUp) Reschedule(at time.Time, notes *string) error {
	f.ScheduledAt = at
	f.Status = StatusPending
	f.DoneAt = nil
	f.CanceledAt = nil
	f.Outcome = nil
	if notes != nil {
		f.Notes = TrimmedOrNil(notes)
	}
	return f.Validate()
}

func (f *FollowUp) checkTransition(to Status, policy TransitionPolicy) error {
	if policy == PolicyStrict && f.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, f.Status, to)
	}
	return nil
}

// Validate checks the field invariants of the current status variant.
func (f FollowUp) Validate() error {
	switch {
	case f.ID == uuid.Nil:
		return invalid("id is required")
	case f.WorkspaceID == uuid.Nil:
		return invalid("workspace id is required")
	case f.LeadID == uuid.Nil:
		return invalid("lead id is required")
	case f.Title == "":
		return invalid("title is required")
	case utf8.RuneCountInString(f.Title) < MinTitleLength || utf8.RuneCountInString(f.Title) > MaxTitleLength:
		return invalid("title must be between %d and %d characters", MinTitleLength, MaxTitleLength)
	case !f.Priority.IsValid():
		return invalid("unknown priority %q", f.Priority)
	case f.ScheduledAt.IsZero():
		return invalid("scheduledAt is required")
	}

	switch f.Status {
	case StatusPending:
		if f.DoneAt != nil || f.CanceledAt != nil {
			return invalid("pending follow-up cannot carry doneAt or canceledAt")
		}
		if f.Outcome != nil {
			return invalid("pending follow-up cannot carry an outcome")
		}
	case StatusDone:
		if f.DoneAt == nil || f.CanceledAt != nil {
			return invalid("done follow-up requires doneAt and no canceledAt")
		}
	case StatusCanceled:
		if f.CanceledAt == nil || f.DoneAt != nil {
			return invalid("canceled follow-up requires canceledAt and no doneAt")
		}
		if f.Outcome == nil {
			return invalid("canceled follow-up requires an outcome")
		}
	default:
		return invalid("unknown status %q", f.Status)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFollowUp, fmt.Sprintf(format, args...))
}

// TrimmedOrNil trims s and returns nil for nil or blank input.
func TrimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// WithLead is a follow-up joined with the lead fields the agenda shows.
type WithLead struct {
	FollowUp
	Lead LeadSummary `json:"lead"`
}

// LeadSummary is the denormalized lead display data.
type LeadSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Status string    `json:"status"`
}

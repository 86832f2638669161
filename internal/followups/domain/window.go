package domain

import "time"

// Window is a scheduledAt range. A zero bound is unbounded; the Open flags
// exclude the bound itself.
type Window struct {
	From     time.Time
	FromOpen bool
	To       time.Time
	ToOpen   bool
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() {
		if t.Before(w.From) || (w.FromOpen && t.Equal(w.From)) {
			return false
		}
	}
	if !w.To.IsZero() {
		if t.After(w.To) || (w.ToOpen && t.Equal(w.To)) {
			return false
		}
	}
	return true
}

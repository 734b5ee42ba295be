// Package ledger derives per-location batch state, FIFO ordering and stock
// alerts from the prep, dispatch and sales event logs.
//
// Every function here is pure: inputs are never mutated, the current time is
// always passed in, and identical inputs give identical outputs.
package ledger

import (
	"time"
)

// ExpiryStatus classifies how close a batch is to its expiry date.
type ExpiryStatus string

const (
	ExpiryExpired ExpiryStatus = "expired"
	ExpiryUrgent  ExpiryStatus = "urgent"
	ExpiryWarning ExpiryStatus = "warning"
	ExpiryGood    ExpiryStatus = "good"
	ExpiryUnknown ExpiryStatus = "unknown"
)

const (
	urgentWindow  = 24 * time.Hour
	warningWindow = 48 * time.Hour
)

// ExpiryReading is the result of Status.
type ExpiryReading struct {
	Status         ExpiryStatus `json:"status"`
	HoursRemaining *float64     `json:"hours_remaining,omitempty"`
}

// Status classifies expiry relative to now. This is the only expiry
// classifier in the service; prep, dispatch and sales views all use it.
//
//	< 0h   expired
//	< 24h  urgent
//	< 48h  warning
//	else   good
//	nil    unknown
func Status(expiry *time.Time, now time.Time) ExpiryReading {
	if expiry == nil {
		return ExpiryReading{Status: ExpiryUnknown}
	}

	left := expiry.Sub(now)
	hours := left.Hours()
	reading := ExpiryReading{HoursRemaining: &hours}

	switch {
	case left < 0:
		reading.Status = ExpiryExpired
	case left < urgentWindow:
		reading.Status = ExpiryUrgent
	case left < warningWindow:
		reading.Status = ExpiryWarning
	default:
		reading.Status = ExpiryGood
	}
	return reading
}

// SameDay reports whether t falls on the calendar day of ref, measured in
// ref's time zone.
func SameDay(t, ref time.Time) bool {
	ty, tm, td := t.In(ref.Location()).Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}

// StartOfDay truncates t to midnight in its own time zone.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

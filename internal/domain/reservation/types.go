package reservation

import (
	"errors"
	"time"
)

type Platform string

const (
	PlatformResy      Platform = "resy"
	PlatformOpenTable Platform = "opentable"
)

// Platforms is the fixed precedence order the orchestrator attempts.
var Platforms = []Platform{PlatformResy, PlatformOpenTable}

// TimeSlot is one bookable slot from an availability query. Immutable
// once produced.
type TimeSlot struct {
	// Time is wall-clock HH:MM, 24-hour.
	Time     string
	Platform Platform
	// Label is the platform's slot sub-type, e.g. "Dining Room" or "Bar".
	Label string
	// ConfigToken is the platform-specific token needed to complete a
	// booking for this slot, where the platform issues one.
	ConfigToken string
}

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var ErrAlreadyCancelled = errors.New("reservation already cancelled")

type Reservation struct {
	ID             string
	RestaurantID   string
	RestaurantName string
	Platform       Platform
	ConfirmationID string
	Date           string // YYYY-MM-DD
	Time           string // HH:MM
	PartySize      int
	SpecialRequest string
	Status         Status
	CreatedAt      time.Time
	CancelledAt    *time.Time
}

// Cancel moves the reservation to cancelled. The reverse transition does
// not exist.
func (r *Reservation) Cancel(at time.Time) error {
	if r.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	r.Status = StatusCancelled
	r.CancelledAt = &at
	return nil
}

// Venue is one candidate hit from a platform venue search.
type Venue struct {
	ID      string
	Name    string
	Address string
}

// Upcoming is one entry from a platform's own reservation list, used as
// the token-validity probe.
type Upcoming struct {
	ConfirmationID string
	VenueName      string
	Date           string
	Time           string
}

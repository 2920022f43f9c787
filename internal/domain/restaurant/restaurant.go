package restaurant

import (
	"time"

	"github.com/example/concierge/internal/domain/reservation"
)

// Restaurant is the cached canonical record. Platform venue handles are
// resolved lazily and written back per platform.
type Restaurant struct {
	ID      string
	Name    string
	Address string
	Lat     float64
	Lng     float64

	ResyVenueID      string
	OpenTableVenueID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Handle returns the cached venue handle for the platform, empty when
// unresolved.
func (r Restaurant) Handle(p reservation.Platform) string {
	switch p {
	case reservation.PlatformResy:
		return r.ResyVenueID
	case reservation.PlatformOpenTable:
		return r.OpenTableVenueID
	}
	return ""
}

// SetHandle records a resolved handle in memory; persisting it is the
// store's job and touches only that platform's column.
func (r *Restaurant) SetHandle(p reservation.Platform, handle string) {
	switch p {
	case reservation.PlatformResy:
		r.ResyVenueID = handle
	case reservation.PlatformOpenTable:
		r.OpenTableVenueID = handle
	}
}

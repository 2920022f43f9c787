package reservation

import (
	"context"
	"errors"

	"github.com/example/concierge/internal/domain/credential"
)

// ErrSearchUnsupported is returned by clients for platforms without a
// venue-search endpoint; the resolver falls back to slug probing.
var ErrSearchUnsupported = errors.New("venue search unsupported")

// Client is the port a platform integration implements. The orchestrator,
// auth manager and resolver only see this interface.
type Client interface {
	Platform() Platform

	// UseCredential installs the credential subsequent calls run under.
	UseCredential(cred credential.Credential)

	// Authenticate performs a direct credential exchange and returns the
	// session token.
	Authenticate(ctx context.Context, email, password string) (string, error)

	// ListUpcoming lists the account's upcoming reservations. Doubles as
	// the token-validity probe: an empty result is still a valid token.
	ListUpcoming(ctx context.Context) ([]Upcoming, error)

	SearchVenues(ctx context.Context, name, locationHint string) ([]Venue, error)

	// VenueExists is the lightweight existence check behind slug probing.
	VenueExists(ctx context.Context, handle string) (bool, error)

	FindAvailability(ctx context.Context, venueHandle, date string, partySize int) ([]TimeSlot, error)

	// BookingDetails exchanges a slot's config token for the final booking
	// token. Platforms that book straight from the slot token return it
	// unchanged.
	BookingDetails(ctx context.Context, slot TimeSlot, date string, partySize int) (string, error)

	Book(ctx context.Context, bookingToken string, partySize int, specialRequest string) (confirmationID string, err error)

	Cancel(ctx context.Context, confirmationID string) error

	// DeepLink builds a platform URL pre-filled for manual completion.
	DeepLink(venueHandle, date, timeHHMM string, partySize int) string
}

// Package identity links a canonical restaurant to the opaque venue
// handle each platform knows it by.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/domain/restaurant"
)

// Cache is the slice of the restaurant store the resolver needs.
type Cache interface {
	UpdateHandle(ctx context.Context, restaurantID string, platform reservation.Platform, handle string) error
}

type Resolver struct {
	cache Cache
	// regionToken suffixes slug candidates for slug-probe platforms.
	regionToken string
	log         zerolog.Logger
}

func NewResolver(cache Cache, regionToken string, log zerolog.Logger) *Resolver {
	return &Resolver{cache: cache, regionToken: regionToken, log: log}
}

// Resolve returns the platform venue handle for rest, cache-first. An
// empty handle with nil error means the restaurant is not present on
// this platform; that is a resolution outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, rest *restaurant.Restaurant, client reservation.Client) (string, error) {
	platform := client.Platform()
	if h := rest.Handle(platform); h != "" {
		return h, nil
	}

	handle, err := r.search(ctx, rest, client)
	if errors.Is(err, reservation.ErrSearchUnsupported) {
		handle, err = r.probeSlugs(ctx, rest.Name, client)
	}
	if err != nil {
		return "", err
	}
	if handle == "" {
		r.log.Debug().
			Str("restaurant", rest.Name).
			Str("platform", string(platform)).
			Msg("no venue identity on platform")
		return "", nil
	}

	if err := r.cache.UpdateHandle(ctx, rest.ID, platform, handle); err != nil {
		return "", fmt.Errorf("cache venue handle: %w", err)
	}
	rest.SetHandle(platform, handle)
	r.log.Info().
		Str("restaurant", rest.Name).
		Str("platform", string(platform)).
		Str("handle", handle).
		Msg("venue identity resolved")
	return handle, nil
}

func (r *Resolver) search(ctx context.Context, rest *restaurant.Restaurant, client reservation.Client) (string, error) {
	hint := ""
	if rest.Lat != 0 || rest.Lng != 0 {
		hint = fmt.Sprintf("%f,%f", rest.Lat, rest.Lng)
	}
	candidates, err := client.SearchVenues(ctx, rest.Name, hint)
	if err != nil {
		return "", err
	}

	// First candidate passing both checks wins, in search order.
	for _, c := range candidates {
		if !NamesMatch(rest.Name, c.Name) {
			continue
		}
		if !AddressCompatible(rest.Address, c.Address) {
			continue
		}
		return c.ID, nil
	}
	return "", nil
}

func (r *Resolver) probeSlugs(ctx context.Context, name string, client reservation.Client) (string, error) {
	for _, slug := range SlugCandidates(name, r.regionToken) {
		ok, err := client.VenueExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if ok {
			return slug, nil
		}
	}
	return "", nil
}

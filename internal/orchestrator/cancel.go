package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/concierge/internal/domain/reservation"
)

// ErrNoMatch means no stored reservation matched the cancel reference.
var ErrNoMatch = errors.New("no matching reservation")

// Cancel tears down a reservation identified either by its confirmation
// id or by a case-insensitive restaurant-name fragment. When a fragment
// matches several upcoming reservations, the most recently created one
// wins. The platform call is never retried; a transient failure leaves
// the reservation untouched for a manual re-run.
func (o *Orchestrator) Cancel(ctx context.Context, ref string) (reservation.Reservation, error) {
	res, err := o.findCancellable(ctx, ref)
	if err != nil {
		return reservation.Reservation{}, err
	}
	if res.Status == reservation.StatusCancelled {
		return res, reservation.ErrAlreadyCancelled
	}

	client := o.clientFor(res.Platform)
	if client == nil {
		return reservation.Reservation{}, fmt.Errorf("no client for platform %s", res.Platform)
	}
	if err := o.auth.EnsureValidToken(ctx, client); err != nil {
		return reservation.Reservation{}, fmt.Errorf("credentials for %s: %w", res.Platform, err)
	}

	breaker := o.breakerFor(res.Platform)
	if err := breaker.Do(ctx, func(ctx context.Context) error {
		return client.Cancel(ctx, res.ConfirmationID)
	}); err != nil {
		o.observeFailure(res.Platform, err)
		return reservation.Reservation{}, fmt.Errorf("cancel on %s: %w", res.Platform, err)
	}

	at := o.now().UTC()
	if err := res.Cancel(at); err != nil {
		return res, err
	}
	if err := o.store.MarkCancelled(ctx, res.ID, at); err != nil {
		// The platform cancel succeeded; surface the divergence loudly.
		return res, fmt.Errorf("cancelled on %s but local update failed: %w", res.Platform, err)
	}
	o.log.Info().
		Str("platform", string(res.Platform)).
		Str("restaurant", res.RestaurantName).
		Str("confirmation", res.ConfirmationID).
		Msg("reservation cancelled")
	o.observeOutcome(res.Platform, "cancelled")
	return res, nil
}

func (o *Orchestrator) findCancellable(ctx context.Context, ref string) (reservation.Reservation, error) {
	if res, err := o.store.GetByConfirmationID(ctx, ref); err == nil {
		return res, nil
	} else if !errors.Is(err, ErrNotFound) {
		return reservation.Reservation{}, fmt.Errorf("reservation lookup: %w", err)
	}

	upcoming, err := o.store.ListUpcoming(ctx)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("list reservations: %w", err)
	}
	needle := strings.ToLower(strings.TrimSpace(ref))
	for _, res := range upcoming {
		if strings.Contains(strings.ToLower(res.RestaurantName), needle) {
			return res, nil
		}
	}
	return reservation.Reservation{}, fmt.Errorf("%w for %q", ErrNoMatch, ref)
}

func (o *Orchestrator) clientFor(p reservation.Platform) reservation.Client {
	for _, c := range o.clients {
		if c.Platform() == p {
			return c
		}
	}
	return nil
}

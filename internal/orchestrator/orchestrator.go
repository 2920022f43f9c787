// Package orchestrator sequences a booking across platforms: credentials,
// venue identity, availability, slot matching and persistence, with
// platform-scoped degradation when a step fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/concierge/internal/db"
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/domain/restaurant"
	"github.com/example/concierge/internal/resilience"
)

// ErrNotFound is surfaced by stores for missing rows.
var ErrNotFound = db.ErrNotFound

// RestaurantStore is the cache slice the orchestrator reads.
type RestaurantStore interface {
	GetByName(ctx context.Context, name string) (restaurant.Restaurant, error)
}

// ReservationStore persists booking outcomes. Reservations are never
// hard-deleted.
type ReservationStore interface {
	Create(ctx context.Context, r reservation.Reservation) error
	GetByConfirmationID(ctx context.Context, confirmationID string) (reservation.Reservation, error)
	// ListUpcoming returns confirmed future reservations, most recently
	// created first.
	ListUpcoming(ctx context.Context) ([]reservation.Reservation, error)
	MarkCancelled(ctx context.Context, id string, at time.Time) error
}

// AuthManager is the credential lifecycle dependency.
type AuthManager interface {
	EnsureValidToken(ctx context.Context, client reservation.Client) error
}

// Resolver links restaurants to platform venue handles.
type Resolver interface {
	Resolve(ctx context.Context, rest *restaurant.Restaurant, client reservation.Client) (string, error)
}

// BookingObserver is notified of booking outcomes and failed platform
// calls, e.g. for metrics.
type BookingObserver interface {
	BookingOutcome(platform reservation.Platform, outcome string)
	CallFailure(platform reservation.Platform, kind resilience.Kind)
}

type Orchestrator struct {
	// clients in fixed precedence order; earlier entries win.
	clients     []reservation.Client
	auth        AuthManager
	resolver    Resolver
	restaurants RestaurantStore
	store       ReservationStore
	breakers    *resilience.Registry
	retry       resilience.RetryPolicy
	observer    BookingObserver
	now         func() time.Time
	log         zerolog.Logger
}

type Option func(*Orchestrator)

func WithObserver(o BookingObserver) Option {
	return func(or *Orchestrator) { or.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(or *Orchestrator) { or.now = now }
}

func New(
	clients []reservation.Client,
	auth AuthManager,
	resolver Resolver,
	restaurants RestaurantStore,
	store ReservationStore,
	breakers *resilience.Registry,
	retry resilience.RetryPolicy,
	log zerolog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		clients:     clients,
		auth:        auth,
		resolver:    resolver,
		restaurants: restaurants,
		store:       store,
		breakers:    breakers,
		retry:       retry,
		now:         time.Now,
		log:         log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BookRequest is one booking intent. Date is YYYY-MM-DD and Time is
// 24-hour HH:MM; both validated upstream.
type BookRequest struct {
	RestaurantName string
	Date           string
	Time           string
	PartySize      int
	SpecialRequest string
}

// PlatformSlots carries one platform's alternative times for display.
type PlatformSlots struct {
	Platform reservation.Platform
	Slots    []reservation.TimeSlot
}

// DeepLink is a pre-filled platform URL for manual completion.
type DeepLink struct {
	Platform reservation.Platform
	URL      string
}

// Result is the structured outcome of a booking attempt. Exactly one of
// Reservation or the fallback fields is meaningful; Message is always
// set when no booking happened.
type Result struct {
	Reservation  *reservation.Reservation
	Alternatives []PlatformSlots
	DeepLinks    []DeepLink
	Message      string
}

// ErrPersistAfterBooking marks the fatal inconsistency where a platform
// confirmed a booking but the local write failed. Not reconciled here.
type ErrPersistAfterBooking struct {
	Platform       reservation.Platform
	ConfirmationID string
	Err            error
}

func (e *ErrPersistAfterBooking) Error() string {
	return fmt.Sprintf("booking confirmed on %s (%s) but persistence failed: %v", e.Platform, e.ConfirmationID, e.Err)
}

func (e *ErrPersistAfterBooking) Unwrap() error { return e.Err }

// Book runs the full state machine. Platforms are attempted strictly in
// precedence order; the first exact-match booking wins and later
// platforms are never tried after a success.
func (o *Orchestrator) Book(ctx context.Context, req BookRequest) (Result, error) {
	rest, err := o.restaurants.GetByName(ctx, req.RestaurantName)
	if errors.Is(err, ErrNotFound) {
		return Result{Message: fmt.Sprintf("I don't know %q yet; search for it first.", req.RestaurantName)}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("restaurant lookup: %w", err)
	}

	var alternatives []PlatformSlots
	var deepLinks []DeepLink

	for _, client := range o.clients {
		platform := client.Platform()
		plog := o.log.With().Str("platform", string(platform)).Str("restaurant", rest.Name).Logger()

		handle, ok := o.preparePlatform(ctx, &rest, client, plog)
		if !ok {
			continue
		}
		// Identity resolved: a deep link is available even if the rest of
		// this platform's attempt goes nowhere.
		deepLinks = append(deepLinks, DeepLink{
			Platform: platform,
			URL:      client.DeepLink(handle, req.Date, req.Time, req.PartySize),
		})

		slots, err := o.findAvailability(ctx, client, handle, req.Date, req.PartySize)
		if err != nil {
			plog.Warn().Err(err).Msg("availability query failed, trying next platform")
			o.observeFailure(platform, err)
			continue
		}

		if exact := exactMatch(slots, req.Time); exact != nil {
			res, err := o.completeBooking(ctx, client, rest, req, *exact)
			if err != nil {
				var persistErr *ErrPersistAfterBooking
				if errors.As(err, &persistErr) {
					return Result{}, err
				}
				plog.Warn().Err(err).Msg("booking failed, trying next platform")
				o.observeFailure(platform, err)
				o.observeOutcome(platform, "error")
				continue
			}
			o.observeOutcome(platform, "booked")
			return Result{Reservation: &res}, nil
		}

		if len(slots) > 0 {
			alternatives = append(alternatives, PlatformSlots{Platform: platform, Slots: slots})
			plog.Info().Int("slots", len(slots)).Msg("no exact time match, recorded alternatives")
		}
		o.observeOutcome(platform, "no_exact_match")
	}

	return o.fallbackResult(req, alternatives, deepLinks), nil
}

// preparePlatform runs the auth and identity steps. Failures skip the
// platform instead of aborting the request.
func (o *Orchestrator) preparePlatform(ctx context.Context, rest *restaurant.Restaurant, client reservation.Client, plog zerolog.Logger) (string, bool) {
	if err := o.auth.EnsureValidToken(ctx, client); err != nil {
		plog.Warn().Err(err).Msg("credentials unavailable, skipping platform")
		return "", false
	}
	handle, err := o.resolver.Resolve(ctx, rest, client)
	if err != nil {
		plog.Warn().Err(err).Msg("venue resolution failed, skipping platform")
		return "", false
	}
	if handle == "" {
		plog.Debug().Msg("restaurant not present on platform")
		return "", false
	}
	return handle, true
}

// findAvailability wraps the read-only availability call in the breaker
// and retry policy.
func (o *Orchestrator) findAvailability(ctx context.Context, client reservation.Client, handle, date string, partySize int) ([]reservation.TimeSlot, error) {
	breaker := o.breakerFor(client.Platform())
	var slots []reservation.TimeSlot
	err := o.retry.Do(ctx, string(client.Platform())+".availability", func(ctx context.Context) error {
		return breaker.Do(ctx, func(ctx context.Context) error {
			var err error
			slots, err = client.FindAvailability(ctx, handle, date, partySize)
			return err
		})
	})
	return slots, err
}

// completeBooking runs the platform's multi-step exchange and persists
// the reservation. Mutating calls go through the breaker but are never
// retried: a transient failure after the remote commit could double-book.
func (o *Orchestrator) completeBooking(ctx context.Context, client reservation.Client, rest restaurant.Restaurant, req BookRequest, slot reservation.TimeSlot) (reservation.Reservation, error) {
	platform := client.Platform()
	breaker := o.breakerFor(platform)

	var confirmationID string
	err := breaker.Do(ctx, func(ctx context.Context) error {
		token, err := client.BookingDetails(ctx, slot, req.Date, req.PartySize)
		if err != nil {
			return err
		}
		confirmationID, err = client.Book(ctx, token, req.PartySize, req.SpecialRequest)
		return err
	})
	if err != nil {
		return reservation.Reservation{}, err
	}

	res := reservation.Reservation{
		ID:             uuid.NewString(),
		RestaurantID:   rest.ID,
		RestaurantName: rest.Name,
		Platform:       platform,
		ConfirmationID: confirmationID,
		Date:           req.Date,
		Time:           slot.Time,
		PartySize:      req.PartySize,
		SpecialRequest: req.SpecialRequest,
		Status:         reservation.StatusConfirmed,
		CreatedAt:      o.now().UTC(),
	}
	if err := o.store.Create(ctx, res); err != nil {
		return reservation.Reservation{}, &ErrPersistAfterBooking{
			Platform:       platform,
			ConfirmationID: confirmationID,
			Err:            err,
		}
	}
	o.log.Info().
		Str("platform", string(platform)).
		Str("restaurant", rest.Name).
		Str("time", slot.Time).
		Str("confirmation", confirmationID).
		Msg("reservation booked")
	return res, nil
}

func (o *Orchestrator) fallbackResult(req BookRequest, alternatives []PlatformSlots, deepLinks []DeepLink) Result {
	if len(alternatives) == 0 && len(deepLinks) == 0 {
		return Result{
			Message: fmt.Sprintf("%s isn't available on either platform for %s.", req.RestaurantName, req.Date),
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "No table at exactly %s.", reservation.To12Hour(req.Time))
	for _, alt := range alternatives {
		times := make([]string, 0, len(alt.Slots))
		for _, s := range alt.Slots {
			times = append(times, reservation.To12Hour(s.Time))
		}
		fmt.Fprintf(&b, " %s has: %s.", alt.Platform, strings.Join(times, ", "))
	}
	if len(deepLinks) > 0 {
		b.WriteString(" You can also book directly via the links provided.")
	}
	return Result{
		Alternatives: alternatives,
		DeepLinks:    deepLinks,
		Message:      b.String(),
	}
}

func (o *Orchestrator) breakerFor(p reservation.Platform) *resilience.Breaker {
	// OpenTable's persisted-query surface rots more often; trip it faster
	// and hold it open longer.
	if p == reservation.PlatformOpenTable {
		return o.breakers.Get(string(p),
			resilience.WithFailMax(3),
			resilience.WithResetTimeout(120*time.Second))
	}
	return o.breakers.Get(string(p))
}

func (o *Orchestrator) observeOutcome(p reservation.Platform, outcome string) {
	if o.observer != nil {
		o.observer.BookingOutcome(p, outcome)
	}
}

func (o *Orchestrator) observeFailure(p reservation.Platform, err error) {
	if o.observer != nil {
		o.observer.CallFailure(p, resilience.KindOf(err))
	}
}

func exactMatch(slots []reservation.TimeSlot, hhmm string) *reservation.TimeSlot {
	for i := range slots {
		if slots[i].Time == hhmm {
			return &slots[i]
		}
	}
	return nil
}

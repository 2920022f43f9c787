package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/concierge/internal/domain/reservation"
)

// AvailabilityRequest asks whether a table exists without booking it.
type AvailabilityRequest struct {
	RestaurantName string
	Date           string
	Time           string // optional; empty means "show everything"
	PartySize      int
}

// PlatformAvailability is one platform's answer for a check.
type PlatformAvailability struct {
	Platform reservation.Platform
	// Exact holds the slot matching the requested time, if any.
	Exact *reservation.TimeSlot
	// Nearby holds slots within the proximity window around the requested
	// time, earliest first as the platform returned them.
	Nearby []reservation.TimeSlot
	// All holds every open slot when no target time was given.
	All []reservation.TimeSlot
}

// AvailabilityResult aggregates every reachable platform's answer.
type AvailabilityResult struct {
	Platforms []PlatformAvailability
	Message   string
}

// CheckAvailability queries each platform in precedence order and
// classifies slots against the requested time. Platforms that fail any
// step are skipped, same as in Book.
func (o *Orchestrator) CheckAvailability(ctx context.Context, req AvailabilityRequest) (AvailabilityResult, error) {
	rest, err := o.restaurants.GetByName(ctx, req.RestaurantName)
	if errors.Is(err, ErrNotFound) {
		return AvailabilityResult{Message: fmt.Sprintf("I don't know %q yet; search for it first.", req.RestaurantName)}, nil
	}
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("restaurant lookup: %w", err)
	}

	var out AvailabilityResult
	for _, client := range o.clients {
		platform := client.Platform()
		plog := o.log.With().Str("platform", string(platform)).Str("restaurant", rest.Name).Logger()

		handle, ok := o.preparePlatform(ctx, &rest, client, plog)
		if !ok {
			continue
		}
		slots, err := o.findAvailability(ctx, client, handle, req.Date, req.PartySize)
		if err != nil {
			plog.Warn().Err(err).Msg("availability query failed")
			continue
		}

		pa := PlatformAvailability{Platform: platform}
		if req.Time == "" {
			pa.All = slots
		} else {
			for i := range slots {
				switch {
				case slots[i].Time == req.Time:
					pa.Exact = &slots[i]
				case reservation.WithinProximity(req.Time, slots[i].Time):
					pa.Nearby = append(pa.Nearby, slots[i])
				}
			}
		}
		out.Platforms = append(out.Platforms, pa)
	}

	out.Message = availabilityMessage(req, out.Platforms)
	return out, nil
}

func availabilityMessage(req AvailabilityRequest, platforms []PlatformAvailability) string {
	if len(platforms) == 0 {
		return fmt.Sprintf("%s isn't available on either platform for %s.", req.RestaurantName, req.Date)
	}

	var b strings.Builder
	found := false
	for _, pa := range platforms {
		switch {
		case pa.Exact != nil:
			fmt.Fprintf(&b, "%s has %s open. ", pa.Platform, reservation.To12Hour(pa.Exact.Time))
			found = true
		case len(pa.Nearby) > 0:
			times := make([]string, 0, len(pa.Nearby))
			for _, s := range pa.Nearby {
				times = append(times, reservation.To12Hour(s.Time))
			}
			fmt.Fprintf(&b, "%s has nearby times: %s. ", pa.Platform, strings.Join(times, ", "))
			found = true
		case len(pa.All) > 0:
			times := make([]string, 0, len(pa.All))
			for _, s := range pa.All {
				times = append(times, reservation.To12Hour(s.Time))
			}
			fmt.Fprintf(&b, "%s is open at: %s. ", pa.Platform, strings.Join(times, ", "))
			found = true
		}
	}
	if !found {
		return fmt.Sprintf("%s isn't available on either platform for %s.", req.RestaurantName, req.Date)
	}
	return strings.TrimSpace(b.String())
}

// Package opentable implements the platform port against OpenTable's
// dapi surface: a GraphQL persisted query for availability and JSON
// endpoints for the rest.
package opentable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/concierge/internal/domain/credential"
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/resilience"
)

const (
	defaultBaseURL              = "https://www.opentable.com/dapi"
	defaultUA                   = "Mozilla/5.0 (X11; Linux x86_64) concierge/1.0"
	defaultPersistedQuerySHA256 = "e6b87083b2dfc66e11d26f9bd6e98b8f6a9f4a3b7d0e9a2f33c9f1f6a0b9f2a1"

	dependency = "opentable"
)

type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
	base    string
	ua      string
	hash    string
	cred    credential.Credential
	log     zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = strings.TrimRight(u, "/") }
}

// WithPersistedQueryHash overrides the availability query hash when the
// upstream one rotates.
func WithPersistedQueryHash(h string) Option {
	return func(c *Client) {
		if strings.TrimSpace(h) != "" {
			c.hash = h
		}
	}
}

func New(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		base:    defaultBaseURL,
		ua:      defaultUA,
		hash:    defaultPersistedQuerySHA256,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Platform() reservation.Platform { return reservation.PlatformOpenTable }

func (c *Client) UseCredential(cred credential.Credential) { c.cred = cred }

func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	b, _ := json.Marshal(payload)
	body, err := c.do(ctx, http.MethodPost, "/auth/login", nil, b)
	if err != nil {
		return "", err
	}
	var resp struct {
		Token     string `json:"token"`
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", resilience.SchemaChanged(dependency, "login response unparseable")
	}
	if resp.Token != "" {
		return resp.Token, nil
	}
	if resp.CSRFToken != "" {
		return resp.CSRFToken, nil
	}
	return "", resilience.SchemaChanged(dependency, "login response missing token")
}

func (c *Client) ListUpcoming(ctx context.Context) ([]reservation.Upcoming, error) {
	body, err := c.do(ctx, http.MethodGet, "/user/reservations?status=upcoming", nil, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Reservations []struct {
			ConfirmationNumber string `json:"confirmationNumber"`
			RestaurantName     string `json:"restaurantName"`
			DateTime           string `json:"dateTime"`
		} `json:"reservations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, resilience.SchemaChanged(dependency, "reservations response unparseable")
	}
	out := make([]reservation.Upcoming, 0, len(resp.Reservations))
	for _, r := range resp.Reservations {
		date, hhmm := splitDateTime(r.DateTime)
		out = append(out, reservation.Upcoming{
			ConfirmationID: r.ConfirmationNumber,
			VenueName:      r.RestaurantName,
			Date:           date,
			Time:           hhmm,
		})
	}
	return out, nil
}

func (c *Client) SearchVenues(ctx context.Context, name, locationHint string) ([]reservation.Venue, error) {
	q := url.Values{}
	q.Set("term", name)
	if locationHint != "" {
		q.Set("latLng", locationHint)
	}
	body, err := c.do(ctx, http.MethodGet, "/fe/autocomplete?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Suggestions []struct {
			ID      json.Number `json:"rid"`
			Name    string      `json:"name"`
			Address string      `json:"addressLine1"`
			Type    string      `json:"type"`
		} `json:"suggestions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, resilience.SchemaChanged(dependency, "autocomplete response unparseable")
	}
	out := make([]reservation.Venue, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		if s.Type != "" && s.Type != "Restaurant" {
			continue
		}
		out = append(out, reservation.Venue{ID: s.ID.String(), Name: s.Name, Address: s.Address})
	}
	return out, nil
}

func (c *Client) VenueExists(ctx context.Context, handle string) (bool, error) {
	hits, err := c.SearchVenues(ctx, handle, "")
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

func (c *Client) FindAvailability(ctx context.Context, venueHandle, date string, partySize int) ([]reservation.TimeSlot, error) {
	payload := map[string]any{
		"operationName": "RestaurantsAvailability",
		"variables": map[string]any{
			"restaurantIds": []string{venueHandle},
			"partySize":     partySize,
			"dateTime":      date + "T19:00:00.000",
			"forwardDays":   1,
			"includeOffers": true,
		},
		"extensions": map[string]any{
			"persistedQuery": map[string]any{
				"version":    1,
				"sha256Hash": c.hash,
			},
		},
	}
	b, _ := json.Marshal(payload)
	body, err := c.do(ctx, http.MethodPost, "/fe/gql?optype=query&opname=RestaurantsAvailability", nil, b)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data struct {
			Availability []struct {
				AvailabilityDays []struct {
					Slots []struct {
						IsAvailable           bool   `json:"isAvailable"`
						ReservationDateTime   string `json:"reservationDateTime"`
						SlotAvailabilityToken string `json:"slotAvailabilityToken"`
						SlotHash              string `json:"slotHash"`
						AttributeType         string `json:"attributeType"`
					} `json:"slots"`
				} `json:"availabilityDays"`
			} `json:"availability"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, resilience.SchemaChanged(dependency, "availability response unparseable")
	}
	if parsed.Data.Availability == nil {
		// The persisted query hash rotated upstream; a retry will not help.
		return nil, resilience.SchemaChanged(dependency, "availability shape absent; persisted query hash likely stale")
	}

	var out []reservation.TimeSlot
	for _, a := range parsed.Data.Availability {
		for _, d := range a.AvailabilityDays {
			for _, s := range d.Slots {
				if !s.IsAvailable {
					continue
				}
				_, hhmm := splitDateTime(s.ReservationDateTime)
				if hhmm == "" {
					continue
				}
				out = append(out, reservation.TimeSlot{
					Time:        hhmm,
					Platform:    reservation.PlatformOpenTable,
					Label:       s.AttributeType,
					ConfigToken: s.SlotAvailabilityToken + "|" + s.SlotHash,
				})
			}
		}
	}
	return out, nil
}

// BookingDetails is pass-through: OpenTable books straight from the
// slot token.
func (c *Client) BookingDetails(_ context.Context, slot reservation.TimeSlot, date string, partySize int) (string, error) {
	if slot.ConfigToken == "" {
		return "", resilience.SchemaChanged(dependency, "slot missing availability token")
	}
	return slot.ConfigToken + "|" + date + "|" + slot.Time + "|" + strconv.Itoa(partySize), nil
}

func (c *Client) Book(ctx context.Context, bookingToken string, partySize int, specialRequest string) (string, error) {
	parts := strings.Split(bookingToken, "|")
	if len(parts) != 5 {
		return "", fmt.Errorf("malformed booking token")
	}
	slotToken, slotHash, date, hhmm := parts[0], parts[1], parts[2], parts[3]

	payload := map[string]any{
		"partySize":             partySize,
		"reservationDateTime":   date + "T" + hhmm + ":00",
		"slotAvailabilityToken": slotToken,
		"slotHash":              slotHash,
	}
	if specialRequest != "" {
		payload["specialRequest"] = specialRequest
	}
	b, _ := json.Marshal(payload)

	body, err := c.do(ctx, http.MethodPost, "/booking/make-reservation", nil, b)
	if err != nil {
		return "", err
	}
	var resp struct {
		ConfirmationNumber json.Number `json:"confirmationNumber"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.ConfirmationNumber.String() == "" {
		return "", resilience.SchemaChanged(dependency, "booking response missing confirmationNumber")
	}
	return resp.ConfirmationNumber.String(), nil
}

func (c *Client) Cancel(ctx context.Context, confirmationID string) error {
	payload := map[string]string{"confirmationNumber": confirmationID}
	b, _ := json.Marshal(payload)
	_, err := c.do(ctx, http.MethodPost, "/booking/cancel-reservation", nil, b)
	return err
}

func (c *Client) DeepLink(venueHandle, date, timeHHMM string, partySize int) string {
	q := url.Values{}
	q.Set("rid", venueHandle)
	q.Set("covers", strconv.Itoa(partySize))
	dt := date
	if timeHHMM != "" {
		dt += "T" + timeHHMM
	} else {
		dt += "T19:00"
	}
	q.Set("dateTime", dt)
	return "https://www.opentable.com/book/validate?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, _ map[string]string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, resilience.Classify(dependency, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("user-agent", c.ua)
	req.Header.Set("x-csrf-token", c.cred.Token)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, resilience.Classify(dependency, 0, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, resilience.Classify(dependency, 0, err)
	}
	if cerr := resilience.Classify(dependency, res.StatusCode, nil); cerr != nil {
		c.log.Debug().
			Int("status", res.StatusCode).
			Str("path", path).
			Msg("opentable call failed")
		return nil, cerr
	}
	return b, nil
}

// splitDateTime splits RFC3339-ish timestamps into (YYYY-MM-DD, HH:MM).
func splitDateTime(s string) (string, string) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), t.Format("15:04")
		}
	}
	return "", ""
}

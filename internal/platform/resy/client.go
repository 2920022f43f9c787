// Package resy implements the platform port against the Resy API, based
// on the request flow captured from an authenticated browser session:
// /4/find for slots, /3/details for a book token, /3/book to commit.
package resy

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
	baseURL   = "https://api.resy.com"
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

	dependency = "resy"
)

type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
	base    string
	cred    credential.Credential
	log     zerolog.Logger
}

type Option func(*Client)

// WithBaseURL points the client at a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = strings.TrimRight(u, "/") }
}

func New(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		hc:      &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		base:    baseURL,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Platform() reservation.Platform { return reservation.PlatformResy }

func (c *Client) UseCredential(cred credential.Credential) { c.cred = cred }

func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	body, err := c.do(ctx, http.MethodPost, "/3/auth/password", "application/x-www-form-urlencoded", nil, []byte(form.Encode()))
	if err != nil {
		return "", err
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		return "", resilience.SchemaChanged(dependency, "auth response missing token")
	}
	return resp.Token, nil
}

func (c *Client) ListUpcoming(ctx context.Context) ([]reservation.Upcoming, error) {
	body, err := c.do(ctx, http.MethodGet, "/3/user/reservations", "", map[string]string{"type": "upcoming"}, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Reservations []struct {
			ResyToken string `json:"resy_token"`
			Venue     struct {
				Name string `json:"name"`
			} `json:"venue"`
			Day  string `json:"day"`
			Time string `json:"time_slot"`
		} `json:"reservations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, resilience.SchemaChanged(dependency, "reservations response unparseable")
	}
	out := make([]reservation.Upcoming, 0, len(resp.Reservations))
	for _, r := range resp.Reservations {
		out = append(out, reservation.Upcoming{
			ConfirmationID: r.ResyToken,
			VenueName:      r.Venue.Name,
			Date:           r.Day,
			Time:           r.Time,
		})
	}
	return out, nil
}

func (c *Client) SearchVenues(ctx context.Context, name, locationHint string) ([]reservation.Venue, error) {
	payload := map[string]any{
		"query":    name,
		"types":    []string{"venue"},
		"per_page": 10,
	}
	if locationHint != "" {
		if lat, lng, ok := splitLatLng(locationHint); ok {
			payload["geo"] = map[string]any{"latitude": lat, "longitude": lng}
		}
	}
	b, _ := json.Marshal(payload)
	body, err := c.do(ctx, http.MethodPost, "/3/venuesearch/search", "application/json", nil, b)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Search struct {
			Hits []struct {
				ID struct {
					Resy int64 `json:"resy"`
				} `json:"id"`
				Name     string `json:"name"`
				Location struct {
					Address string `json:"address_1"`
				} `json:"location"`
			} `json:"hits"`
		} `json:"search"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, resilience.SchemaChanged(dependency, "venue search response unparseable")
	}
	out := make([]reservation.Venue, 0, len(resp.Search.Hits))
	for _, h := range resp.Search.Hits {
		out = append(out, reservation.Venue{
			ID:      strconv.FormatInt(h.ID.Resy, 10),
			Name:    h.Name,
			Address: h.Location.Address,
		})
	}
	return out, nil
}

func (c *Client) VenueExists(ctx context.Context, handle string) (bool, error) {
	_, err := c.do(ctx, http.MethodGet, "/3/venue", "", map[string]string{"url_slug": handle}, nil)
	if err == nil {
		return true, nil
	}
	if resilience.IsKind(err, resilience.Permanent) {
		return false, nil
	}
	return false, err
}

func (c *Client) FindAvailability(ctx context.Context, venueHandle, date string, partySize int) ([]reservation.TimeSlot, error) {
	params := map[string]string{
		"party_size": strconv.Itoa(partySize),
		"venue_id":   venueHandle,
		"day":        date,
		// Deprecated but still required by the endpoint.
		"lat":  "0",
		"long": "0",
	}
	body, err := c.do(ctx, http.MethodGet, "/4/find", "", params, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results struct {
			Venues []struct {
				Slots []struct {
					Date struct {
						Start string `json:"start"`
					} `json:"date"`
					Config struct {
						Type  string `json:"type"`
						Token string `json:"token"`
					} `json:"config"`
				} `json:"slots"`
			} `json:"venues"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, resilience.SchemaChanged(dependency, "find response unparseable")
	}
	if len(resp.Results.Venues) == 0 {
		return nil, nil
	}

	var out []reservation.TimeSlot
	for _, s := range resp.Results.Venues[0].Slots {
		// "2026-09-12 19:00:00" -> "19:00"
		pieces := strings.Split(s.Date.Start, " ")
		if len(pieces) < 2 {
			return nil, resilience.SchemaChanged(dependency, "slot start missing time component")
		}
		hhmm, err := reservation.NormalizeTime(pieces[1])
		if err != nil {
			return nil, resilience.SchemaChanged(dependency, "slot start unparseable: "+pieces[1])
		}
		out = append(out, reservation.TimeSlot{
			Time:        hhmm,
			Platform:    reservation.PlatformResy,
			Label:       s.Config.Type,
			ConfigToken: s.Config.Token,
		})
	}
	return out, nil
}

func (c *Client) BookingDetails(ctx context.Context, slot reservation.TimeSlot, date string, partySize int) (string, error) {
	payload := struct {
		ConfigID  string `json:"config_id"`
		Day       string `json:"day"`
		PartySize int64  `json:"party_size"`
	}{ConfigID: slot.ConfigToken, Day: date, PartySize: int64(partySize)}
	b, _ := json.Marshal(payload)

	body, err := c.do(ctx, http.MethodPost, "/3/details", "application/json", nil, b)
	if err != nil {
		return "", err
	}

	var resp struct {
		BookToken struct {
			Value string `json:"value"`
		} `json:"book_token"`
		User struct {
			PaymentMethods json.RawMessage `json:"payment_methods"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.BookToken.Value == "" {
		return "", resilience.SchemaChanged(dependency, "details response missing book_token")
	}

	if id, ok := normalizePaymentMethod(resp.User.PaymentMethods); ok {
		c.cred.PaymentMethodID = id
	} else {
		c.log.Debug().Msg("no usable payment method in details response")
	}
	return resp.BookToken.Value, nil
}

func (c *Client) Book(ctx context.Context, bookingToken string, partySize int, specialRequest string) (string, error) {
	form := url.Values{}
	form.Set("book_token", bookingToken)
	if c.cred.PaymentMethodID != "" {
		pb, _ := json.Marshal(struct {
			ID string `json:"id"`
		}{ID: c.cred.PaymentMethodID})
		form.Set("struct_payment_method", string(pb))
	}
	if specialRequest != "" {
		form.Set("special_request", specialRequest)
	}

	body, err := c.do(ctx, http.MethodPost, "/3/book", "application/x-www-form-urlencoded", nil, []byte(form.Encode()))
	if err != nil {
		return "", err
	}
	var resp struct {
		ResyToken string `json:"resy_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.ResyToken == "" {
		return "", resilience.SchemaChanged(dependency, "book response missing resy_token")
	}
	return resp.ResyToken, nil
}

func (c *Client) Cancel(ctx context.Context, confirmationID string) error {
	form := url.Values{}
	form.Set("resy_token", confirmationID)
	_, err := c.do(ctx, http.MethodPost, "/3/cancel", "application/x-www-form-urlencoded", nil, []byte(form.Encode()))
	return err
}

// DeepLink points at the Resy booking widget, which accepts the numeric
// venue id directly.
func (c *Client) DeepLink(venueHandle, date, timeHHMM string, partySize int) string {
	q := url.Values{}
	q.Set("venue_id", venueHandle)
	q.Set("date", date)
	q.Set("seats", strconv.Itoa(partySize))
	if timeHHMM != "" {
		q.Set("time", timeHHMM)
	}
	return "https://widgets.resy.com/?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path, contentType string, query map[string]string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, resilience.Classify(dependency, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Add("user-agent", userAgent)
	req.Header.Add("origin", "https://resy.com")
	req.Header.Add("referrer", "https://resy.com")
	req.Header.Add("x-origin", "https://resy.com")
	req.Header.Add("cache-control", "no-cache")
	if contentType != "" {
		req.Header.Add("content-type", contentType)
	}
	req.Header.Add("authorization", fmt.Sprintf(`ResyAPI api_key="%s"`, c.cred.APIKey))
	req.Header.Add("x-resy-auth-token", c.cred.Token)
	req.Header.Add("x-resy-universal-auth", c.cred.Token)

	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

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
			Msg("resy call failed")
		return nil, cerr
	}
	return b, nil
}

func splitLatLng(hint string) (float64, float64, bool) {
	parts := strings.SplitN(hint, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

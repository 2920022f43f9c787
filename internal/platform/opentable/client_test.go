package opentable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/concierge/internal/domain/credential"
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/resilience"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(zerolog.Nop(), WithBaseURL(srv.URL))
	c.UseCredential(credential.Credential{Token: "csrf"})
	return c
}

func TestFindAvailability_ParsesSlots(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fe/gql", r.URL.Path)
		var payload struct {
			Variables struct {
				RestaurantIds []string `json:"restaurantIds"`
				PartySize     int      `json:"partySize"`
			} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"3141"}, payload.Variables.RestaurantIds)
		assert.Equal(t, 4, payload.Variables.PartySize)

		_, _ = w.Write([]byte(`{"data":{"availability":[{"availabilityDays":[{"slots":[
			{"isAvailable":true,"reservationDateTime":"2026-09-12T18:30:00","slotAvailabilityToken":"tok1","slotHash":"h1","attributeType":"default"},
			{"isAvailable":false,"reservationDateTime":"2026-09-12T19:00:00","slotAvailabilityToken":"tok2","slotHash":"h2"},
			{"isAvailable":true,"reservationDateTime":"2026-09-12T20:00:00","slotAvailabilityToken":"tok3","slotHash":"h3","attributeType":"bar"}
		]}]}]}}`))
	})

	slots, err := c.FindAvailability(context.Background(), "3141", "2026-09-12", 4)
	require.NoError(t, err)
	require.Len(t, slots, 2, "unavailable slots are dropped")
	assert.Equal(t, "18:30", slots[0].Time)
	assert.Equal(t, "tok1|h1", slots[0].ConfigToken)
	assert.Equal(t, "20:00", slots[1].Time)
}

func TestFindAvailability_MissingShapeIsSchemaChange(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	_, err := c.FindAvailability(context.Background(), "3141", "2026-09-12", 2)
	require.Error(t, err)
	assert.True(t, resilience.IsKind(err, resilience.SchemaChange))
}

func TestBookingDetailsAndBook(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/booking/make-reservation", r.URL.Path)
		assert.Equal(t, "csrf", r.Header.Get("x-csrf-token"))
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "tok1", payload["slotAvailabilityToken"])
		assert.Equal(t, "h1", payload["slotHash"])
		assert.Equal(t, "2026-09-12T19:30:00", payload["reservationDateTime"])
		_, _ = w.Write([]byte(`{"confirmationNumber":12345}`))
	})

	slot := slotFixture("19:30", "tok1|h1")
	token, err := c.BookingDetails(context.Background(), slot, "2026-09-12", 2)
	require.NoError(t, err)

	conf, err := c.Book(context.Background(), token, 2, "")
	require.NoError(t, err)
	assert.Equal(t, "12345", conf)
}

func TestAuthenticate_FallsBackToCSRFToken(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"csrfToken":"abc"}`))
	})
	tok, err := c.Authenticate(context.Background(), "d@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestSearchVenues_FiltersNonRestaurants(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fe/autocomplete", r.URL.Path)
		assert.Equal(t, "Lilia", r.URL.Query().Get("term"))
		_, _ = w.Write([]byte(`{"suggestions":[
			{"rid":1,"name":"Williamsburg","type":"Neighborhood"},
			{"rid":3141,"name":"Lilia","addressLine1":"567 Union Ave","type":"Restaurant"}
		]}`))
	})

	venues, err := c.SearchVenues(context.Background(), "Lilia", "")
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "3141", venues[0].ID)
}

func TestDeepLink(t *testing.T) {
	c := New(zerolog.Nop())
	link := c.DeepLink("3141", "2026-09-12", "19:00", 2)
	assert.Contains(t, link, "rid=3141")
	assert.Contains(t, link, "covers=2")
	assert.Contains(t, link, "dateTime=2026-09-12T19%3A00")
}

func slotFixture(hhmm, token string) reservation.TimeSlot {
	return reservation.TimeSlot{
		Time:        hhmm,
		Platform:    reservation.PlatformOpenTable,
		ConfigToken: token,
	}
}

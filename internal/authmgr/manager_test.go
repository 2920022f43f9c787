package authmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/concierge/internal/credstore"
	"github.com/example/concierge/internal/domain/credential"
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/resilience"
)

type memStore struct {
	creds map[reservation.Platform]credential.Credential
	saves int
}

func newMemStore() *memStore {
	return &memStore{creds: make(map[reservation.Platform]credential.Credential)}
}

func (s *memStore) Get(p reservation.Platform) (credential.Credential, error) {
	c, ok := s.creds[p]
	if !ok {
		return credential.Credential{}, credstore.ErrNotFound
	}
	return c, nil
}

func (s *memStore) Save(p reservation.Platform, c credential.Credential) error {
	s.creds[p] = c
	s.saves++
	return nil
}

type staticSecrets map[reservation.Platform]string

func (s staticSecrets) Password(p reservation.Platform) (string, bool) {
	pw, ok := s[p]
	return pw, ok
}

// authClient fakes the platform port for auth flows.
type authClient struct {
	platform  reservation.Platform
	listErr   error
	listCalls int
	authToken string
	authErr   error
	authCalls int
	installed []credential.Credential
}

func (c *authClient) Platform() reservation.Platform { return c.platform }
func (c *authClient) UseCredential(cred credential.Credential) {
	c.installed = append(c.installed, cred)
}
func (c *authClient) Authenticate(_ context.Context, email, password string) (string, error) {
	c.authCalls++
	return c.authToken, c.authErr
}
func (c *authClient) ListUpcoming(context.Context) ([]reservation.Upcoming, error) {
	c.listCalls++
	return nil, c.listErr
}
func (c *authClient) SearchVenues(context.Context, string, string) ([]reservation.Venue, error) {
	return nil, nil
}
func (c *authClient) VenueExists(context.Context, string) (bool, error) { return false, nil }
func (c *authClient) FindAvailability(context.Context, string, string, int) ([]reservation.TimeSlot, error) {
	return nil, nil
}
func (c *authClient) BookingDetails(context.Context, reservation.TimeSlot, string, int) (string, error) {
	return "", nil
}
func (c *authClient) Book(context.Context, string, int, string) (string, error) { return "", nil }
func (c *authClient) Cancel(context.Context, string) error                      { return nil }
func (c *authClient) DeepLink(string, string, string, int) string               { return "" }

func TestEnsureValidToken_NoStoredCredentialIsFatal(t *testing.T) {
	m := NewManager(newMemStore(), nil, nil, zerolog.Nop())
	client := &authClient{platform: reservation.PlatformResy}

	err := m.EnsureValidToken(context.Background(), client)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, reservation.PlatformResy, authErr.Platform)
	assert.Zero(t, client.authCalls, "no authentication without a provisioned credential")
}

func TestEnsureValidToken_ValidTokenProbesOnly(t *testing.T) {
	store := newMemStore()
	store.creds[reservation.PlatformResy] = credential.Credential{Email: "d@example.com", Token: "tok"}
	m := NewManager(store, nil, nil, zerolog.Nop())
	client := &authClient{platform: reservation.PlatformResy}

	require.NoError(t, m.EnsureValidToken(context.Background(), client))
	assert.Equal(t, 1, client.listCalls)
	assert.Zero(t, client.authCalls)
	assert.Zero(t, store.saves, "nothing persisted when the token is already valid")
}

func TestEnsureValidToken_EmptyUpcomingListIsStillValid(t *testing.T) {
	store := newMemStore()
	store.creds[reservation.PlatformResy] = credential.Credential{Email: "d@example.com", Token: "tok"}
	m := NewManager(store, nil, nil, zerolog.Nop())
	client := &authClient{platform: reservation.PlatformResy} // ListUpcoming returns nil, nil

	require.NoError(t, m.EnsureValidToken(context.Background(), client))
	assert.Zero(t, client.authCalls)
}

func TestEnsureValidToken_RefreshNeverPersistsPassword(t *testing.T) {
	store := newMemStore()
	store.creds[reservation.PlatformResy] = credential.Credential{
		Email:    "d@example.com",
		Password: "hunter2",
		Token:    "stale",
	}
	m := NewManager(store, nil, nil, zerolog.Nop())
	client := &authClient{
		platform:  reservation.PlatformResy,
		listErr:   resilience.Classify("resy", 401, nil),
		authToken: "fresh",
	}

	require.NoError(t, m.EnsureValidToken(context.Background(), client))

	saved := store.creds[reservation.PlatformResy]
	assert.Equal(t, "fresh", saved.Token)
	assert.Empty(t, saved.Password, "plaintext password must not be written back")
	assert.Equal(t, "d@example.com", saved.Email)

	require.NotEmpty(t, client.installed)
	assert.Equal(t, "fresh", client.installed[len(client.installed)-1].Token)
}

func TestEnsureValidToken_PasswordPriorityOrder(t *testing.T) {
	store := newMemStore()
	store.creds[reservation.PlatformResy] = credential.Credential{
		Email:    "d@example.com",
		Password: "stored-pw",
	}
	secrets := staticSecrets{reservation.PlatformResy: "secret-pw"}
	t.Setenv("CONCIERGE_RESY_PASSWORD", "env-pw")

	m := NewManager(store, secrets, nil, zerolog.Nop())
	pw, ok := m.resolvePassword(reservation.PlatformResy, store.creds[reservation.PlatformResy])
	require.True(t, ok)
	assert.Equal(t, "secret-pw", pw, "config store wins over env and stored value")

	m2 := NewManager(store, nil, nil, zerolog.Nop())
	pw, ok = m2.resolvePassword(reservation.PlatformResy, store.creds[reservation.PlatformResy])
	require.True(t, ok)
	assert.Equal(t, "env-pw", pw, "env wins over stored value")

	t.Setenv("CONCIERGE_RESY_PASSWORD", "")
	pw, ok = m2.resolvePassword(reservation.PlatformResy, store.creds[reservation.PlatformResy])
	require.True(t, ok)
	assert.Equal(t, "stored-pw", pw)
}

func TestEnsureValidToken_NoPasswordAnywhereIsFatal(t *testing.T) {
	store := newMemStore()
	store.creds[reservation.PlatformOpenTable] = credential.Credential{Email: "d@example.com"}
	m := NewManager(store, nil, nil, zerolog.Nop())
	client := &authClient{platform: reservation.PlatformOpenTable}

	err := m.EnsureValidToken(context.Background(), client)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "no password")
}

func TestAuthenticate_BrowserFallbackAfterDirectFailure(t *testing.T) {
	store := newMemStore()
	store.creds[reservation.PlatformResy] = credential.Credential{
		Email:    "d@example.com",
		Password: "pw",
	}
	browserCalls := 0
	browserLogin := func(_ context.Context, p reservation.Platform, email, password string) (string, error) {
		browserCalls++
		assert.Equal(t, reservation.PlatformResy, p)
		assert.Equal(t, "d@example.com", email)
		assert.Equal(t, "pw", password)
		return "browser-token", nil
	}
	m := NewManager(store, nil, browserLogin, zerolog.Nop())
	client := &authClient{
		platform: reservation.PlatformResy,
		authErr:  resilience.Classify("resy", 500, nil),
	}

	require.NoError(t, m.EnsureValidToken(context.Background(), client))
	assert.Equal(t, 1, client.authCalls, "direct strategy attempted exactly once")
	assert.Equal(t, 1, browserCalls, "browser strategy attempted exactly once")
	assert.Equal(t, "browser-token", store.creds[reservation.PlatformResy].Token)
}

func TestAuthenticate_BothStrategiesFailIsFatal(t *testing.T) {
	store := newMemStore()
	store.creds[reservation.PlatformResy] = credential.Credential{
		Email:    "d@example.com",
		Password: "pw",
	}
	browserLogin := func(context.Context, reservation.Platform, string, string) (string, error) {
		return "", errors.New("captcha wall")
	}
	m := NewManager(store, nil, browserLogin, zerolog.Nop())
	client := &authClient{
		platform: reservation.PlatformResy,
		authErr:  resilience.Classify("resy", 503, nil),
	}

	err := m.EnsureValidToken(context.Background(), client)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "both auth strategies failed")
	assert.Zero(t, store.saves)
}

func TestExtractToken(t *testing.T) {
	body := []byte(`{"user":{"id":1},"token":"abc123"}`)
	assert.Equal(t, "abc123", extractToken(body, []string{"token"}))
	assert.Equal(t, "", extractToken(body, []string{"csrfToken"}))
	assert.Equal(t, "", extractToken([]byte("not json"), []string{"token"}))
	assert.Equal(t, "", extractToken([]byte(`{"token":42}`), []string{"token"}))
}

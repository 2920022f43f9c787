// Package authmgr owns the per-platform credential lifecycle: obtain,
// validate, refresh. Authentication failures are fatal for the platform;
// repeated login attempts risk lockout or CAPTCHA, so nothing here is
// retried by the resilience kernel.
package authmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/concierge/internal/credstore"
	"github.com/example/concierge/internal/domain/credential"
	"github.com/example/concierge/internal/domain/reservation"
	"github.com/example/concierge/internal/resilience"
)

// AuthError is fatal: the caller must not retry automatically.
type AuthError struct {
	Platform reservation.Platform
	Reason   string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s auth: %s: %v", e.Platform, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s auth: %s", e.Platform, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CredentialStore is the slice of the credential store the manager uses.
type CredentialStore interface {
	Get(p reservation.Platform) (credential.Credential, error)
	Save(p reservation.Platform, c credential.Credential) error
}

// SecretSource resolves a platform password from a secure config store.
type SecretSource interface {
	Password(p reservation.Platform) (string, bool)
}

// Manager validates and refreshes platform credentials. One manager
// serves all platforms; it is handed the breaker registry owner's
// logger but never wraps its own calls in retry.
type Manager struct {
	store   CredentialStore
	secrets SecretSource
	// browserLogin is the ordered-second strategy; nil disables it.
	browserLogin BrowserLoginFunc
	log          zerolog.Logger
}

// BrowserLoginFunc drives an interactive login and returns the session
// token recovered from intercepted network traffic.
type BrowserLoginFunc func(ctx context.Context, p reservation.Platform, email, password string) (string, error)

func NewManager(store CredentialStore, secrets SecretSource, browserLogin BrowserLoginFunc, log zerolog.Logger) *Manager {
	return &Manager{store: store, secrets: secrets, browserLogin: browserLogin, log: log}
}

// EnsureValidToken makes sure the client holds a working session token.
// A missing stored credential is fatal: credentials are provisioned once,
// out of band, before first use.
func (m *Manager) EnsureValidToken(ctx context.Context, client reservation.Client) error {
	platform := client.Platform()

	cred, err := m.store.Get(platform)
	if errors.Is(err, credstore.ErrNotFound) {
		return &AuthError{Platform: platform, Reason: "no stored credential; provision one first"}
	}
	if err != nil {
		return &AuthError{Platform: platform, Reason: "credential store read failed", Err: err}
	}

	if cred.HasToken() {
		client.UseCredential(cred)
		if m.probe(ctx, client) {
			return nil
		}
		m.log.Info().Str("platform", string(platform)).Msg("stored token invalid, re-authenticating")
	}

	password, ok := m.resolvePassword(platform, cred)
	if !ok {
		return &AuthError{Platform: platform, Reason: "no password available for refresh"}
	}

	token, err := m.authenticate(ctx, client, cred.Email, password)
	if err != nil {
		return err
	}

	// Merge and persist with the refreshed token. The plaintext password
	// never goes back into the stored record.
	cred.Token = token
	cred.Password = ""
	cred.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(platform, cred); err != nil {
		return &AuthError{Platform: platform, Reason: "persist refreshed credential", Err: err}
	}
	client.UseCredential(cred)
	m.log.Info().Str("platform", string(platform)).Msg("credential refreshed")
	return nil
}

// probe validates the token with the lightest call the platform offers:
// listing the account's reservations. An empty list is still a valid
// token; only transport or auth errors invalidate.
func (m *Manager) probe(ctx context.Context, client reservation.Client) bool {
	_, err := client.ListUpcoming(ctx)
	if err == nil {
		return true
	}
	kind := resilience.KindOf(err)
	m.log.Debug().
		Str("platform", string(client.Platform())).
		Stringer("kind", kind).
		Err(err).
		Msg("token probe failed")
	return false
}

// resolvePassword checks, in priority order: the secure config store, an
// environment variable, the previously stored credential value.
func (m *Manager) resolvePassword(p reservation.Platform, cred credential.Credential) (string, bool) {
	if m.secrets != nil {
		if pw, ok := m.secrets.Password(p); ok && pw != "" {
			return pw, true
		}
	}
	if pw := os.Getenv(passwordEnvVar(p)); pw != "" {
		return pw, true
	}
	if cred.Password != "" {
		return cred.Password, true
	}
	return "", false
}

func passwordEnvVar(p reservation.Platform) string {
	return "CONCIERGE_" + strings.ToUpper(string(p)) + "_PASSWORD"
}

// authenticate runs the two ordered strategies: direct credential
// exchange first, simulated browser second. Each strategy is attempted
// exactly once per call.
func (m *Manager) authenticate(ctx context.Context, client reservation.Client, email, password string) (string, error) {
	platform := client.Platform()
	if email == "" {
		return "", &AuthError{Platform: platform, Reason: "stored credential has no email"}
	}

	token, directErr := client.Authenticate(ctx, email, password)
	if directErr == nil && token != "" {
		return token, nil
	}
	m.log.Warn().
		Str("platform", string(platform)).
		Err(directErr).
		Msg("direct credential exchange failed, trying simulated browser")

	if m.browserLogin == nil {
		return "", &AuthError{Platform: platform, Reason: "direct exchange failed and no browser fallback", Err: directErr}
	}
	token, browserErr := m.browserLogin(ctx, platform, email, password)
	if browserErr == nil && token != "" {
		return token, nil
	}
	return "", &AuthError{
		Platform: platform,
		Reason:   "both auth strategies failed",
		Err:      errors.Join(directErr, browserErr),
	}
}

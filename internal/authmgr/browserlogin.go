package authmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/concierge/internal/browser"
	"github.com/example/concierge/internal/domain/reservation"
)

// loginProfile describes one platform's interactive login form and the
// auth response to watch for.
type loginProfile struct {
	LoginURL    string
	EmailSel    string
	PasswordSel string
	SubmitSel   string
	// AuthURLSubstr matches the authentication endpoint in outgoing
	// network traffic.
	AuthURLSubstr string
	// TokenFields are tried in order against the intercepted JSON body.
	TokenFields []string
}

var loginProfiles = map[reservation.Platform]loginProfile{
	reservation.PlatformResy: {
		LoginURL:      "https://resy.com/",
		EmailSel:      `input[name="email"]`,
		PasswordSel:   `input[name="password"]`,
		SubmitSel:     `button[type="submit"]`,
		AuthURLSubstr: "/3/auth/password",
		TokenFields:   []string{"token"},
	},
	reservation.PlatformOpenTable: {
		LoginURL:      "https://www.opentable.com/my/profile/signin",
		EmailSel:      `input[name="email"]`,
		PasswordSel:   `input[name="password"]`,
		SubmitSel:     `button[type="submit"]`,
		AuthURLSubstr: "/dapi/auth/login",
		TokenFields:   []string{"token", "csrfToken"},
	},
}

const tokenWait = 20 * time.Second

// NewBrowserLogin builds the simulated-browser strategy on top of the
// automation port. A fresh browser is started per login attempt so no
// session state leaks between platforms.
func NewBrowserLogin(newPort func(ctx context.Context) (browser.Port, error), log zerolog.Logger) BrowserLoginFunc {
	return func(ctx context.Context, p reservation.Platform, email, password string) (string, error) {
		profile, ok := loginProfiles[p]
		if !ok {
			return "", fmt.Errorf("no browser login profile for platform %q", p)
		}

		port, err := newPort(ctx)
		if err != nil {
			return "", fmt.Errorf("start browser: %w", err)
		}
		defer func() { _ = port.Close() }()

		responses, stop, err := port.InterceptResponses(ctx, profile.AuthURLSubstr)
		if err != nil {
			return "", err
		}
		defer stop()

		if err := port.Navigate(ctx, profile.LoginURL); err != nil {
			return "", fmt.Errorf("navigate login: %w", err)
		}
		if err := port.WaitVisible(ctx, profile.EmailSel); err != nil {
			return "", fmt.Errorf("login form: %w", err)
		}
		if err := port.Fill(ctx, profile.EmailSel, email); err != nil {
			return "", err
		}
		if err := port.Fill(ctx, profile.PasswordSel, password); err != nil {
			return "", err
		}
		if err := port.Click(ctx, profile.SubmitSel); err != nil {
			return "", err
		}

		log.Debug().Str("platform", string(p)).Msg("login submitted, waiting for auth response")
		return waitForToken(ctx, responses, profile.TokenFields)
	}
}

func waitForToken(ctx context.Context, responses <-chan browser.Response, fields []string) (string, error) {
	timer := time.NewTimer(tokenWait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", fmt.Errorf("no auth response within %s", tokenWait)
		case resp, ok := <-responses:
			if !ok {
				return "", fmt.Errorf("response capture ended without a token")
			}
			if tok := extractToken(resp.Body, fields); tok != "" {
				return tok, nil
			}
		}
	}
}

// extractToken pulls the first present token field out of a JSON body.
func extractToken(body []byte, fields []string) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, f := range fields {
		raw, ok := payload[f]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

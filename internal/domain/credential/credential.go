package credential

import "time"

// Credential is the per-platform stored credential payload. It is
// encrypted at rest by the credential store; fields here are plaintext
// in memory only.
type Credential struct {
	Platform string `json:"platform"`
	Email    string `json:"email"`

	// Password is only ever present on a freshly provisioned record. A
	// successful refresh persists the merged credential with this field
	// cleared.
	Password string `json:"password,omitempty"`

	Token  string `json:"token,omitempty"`
	APIKey string `json:"api_key,omitempty"`

	// PaymentMethodID is the normalized {id} form; see the resy client's
	// payment-shape handling.
	PaymentMethodID string `json:"payment_method_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasToken reports whether a session token is present.
func (c Credential) HasToken() bool { return c.Token != "" }

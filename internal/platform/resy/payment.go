package resy

import "encoding/json"

// normalizePaymentMethod collapses the upstream payment_methods field
// into a single id. The field arrives in several undocumented shapes: a
// bare string, a bare number, or a list of {id} objects. Anything else
// is treated as "no payment method" rather than guessed at.
func normalizePaymentMethod(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
		return n.String(), true
	}

	var list []struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if item.ID.String() != "" {
				return item.ID.String(), true
			}
		}
	}

	return "", false
}

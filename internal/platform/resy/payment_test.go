package resy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePaymentMethod(t *testing.T) {
	for _, tc := range []struct {
		name   string
		raw    string
		wantID string
		wantOK bool
	}{
		{"string", `"pm_123"`, "pm_123", true},
		{"number", `42`, "42", true},
		{"object list", `[{"id":7},{"id":8}]`, "7", true},
		{"empty list", `[]`, "", false},
		{"empty string", `""`, "", false},
		{"null", `null`, "", false},
		{"absent", ``, "", false},
		{"unrecognized object", `{"weird":true}`, "", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := normalizePaymentMethod(json.RawMessage(tc.raw))
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

package identity

import (
	"regexp"
	"strings"
)

// stopWords are removed token-by-token after possessive stripping. The
// removal is deliberately per-token: "new york" is a two-word phrase and
// survives, while the "ny"/"nyc" abbreviations do not. Known quirk, kept.
var stopWords = map[string]struct{}{
	"the":        {},
	"restaurant": {},
	"nyc":        {},
	"ny":         {},
}

// NormalizeName lower-cases, trims, strips possessive markers (both the
// ASCII apostrophe and U+2019) and drops stop-word tokens. Idempotent.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "’s", "")
	s = strings.ReplaceAll(s, "'s", "")

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, drop := stopWords[tok]; drop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// NamesMatch applies the bidirectional substring rule: either normalized
// name containing the other is a match. An empty normalized name is a
// substring of everything and matches trivially; accepted edge case.
func NamesMatch(source, candidate string) bool {
	ns := NormalizeName(source)
	nc := NormalizeName(candidate)
	return strings.Contains(nc, ns) || strings.Contains(ns, nc)
}

var leadingNumber = regexp.MustCompile(`^\s*(\d+)\b`)

// StreetNumber extracts a leading street number from an address. The
// second return is false when no number is detectable.
func StreetNumber(address string) (string, bool) {
	m := leadingNumber.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// AddressCompatible applies street-number disambiguation: when both
// sides carry a detectable leading number they must be equal; a missing
// number on either side is non-disqualifying.
func AddressCompatible(sourceAddr, candidateAddr string) bool {
	sn, sok := StreetNumber(sourceAddr)
	cn, cok := StreetNumber(candidateAddr)
	if !sok || !cok {
		return true
	}
	return sn == cn
}

package identity

import (
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a restaurant name: lower-case, strip
// possessives, collapse everything else to single hyphens.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "’s", "s")
	s = strings.ReplaceAll(s, "'s", "s")
	s = nonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugCandidates lists the deterministic slugs to probe, in order. The
// region token (e.g. "new-york") is appended as a suffixed variant when
// configured.
func SlugCandidates(name, regionToken string) []string {
	base := Slugify(name)
	if base == "" {
		return nil
	}
	out := []string{base}
	if regionToken != "" {
		out = append(out, base+"-"+regionToken)
	}
	return out
}

package hierarchy

import (
	"strings"
)

// EnterprisePrefix is the path prefix carried by canonical catalog keys.
const EnterprisePrefix = "ITW>"

// Normalize prepares a hierarchy key or path fragment for comparison:
// all whitespace removed, lower-cased, leading enterprise prefix and any
// trailing separators stripped. The original string is never mutated;
// normalization is for comparison only.
func Normalize(s string) string {
	n := strings.Join(strings.Fields(s), "")
	n = strings.ToLower(n)
	n = strings.TrimPrefix(n, strings.ToLower(EnterprisePrefix))
	n = strings.TrimRight(n, ">")
	return n
}

// normalizeLoose lower-cases and strips whitespace but keeps the enterprise
// prefix, for callers that need to know whether the input carried it.
func normalizeLoose(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Match reports whether two hierarchy names refer to the same node, using
// bidirectional containment after normalization: either side containing the
// other counts as a match. Empty values never match anything.
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// pathComponents splits a hierarchy path on ">" and returns the non-empty
// components with surrounding whitespace trimmed.
func pathComponents(path string) []string {
	parts := strings.Split(path, ">")
	components := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			components = append(components, p)
		}
	}
	return components
}

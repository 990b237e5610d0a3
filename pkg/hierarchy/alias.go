package hierarchy

import (
	"os"
	"sort"
	"strings"

	"github.com/safetypulse/safetypulse/pkg/observability"
)

// AliasResolver maps loosely formatted or legacy hierarchy path fragments
// onto canonical catalog paths. Alias keys are tried longest-first so a more
// specific alias always wins over a shorter one that also happens to match.
type AliasResolver struct {
	aliases    map[string]string
	keys       []string            // normalized alias keys, longest first
	normalized map[string]string   // normalized alias key → original key
	canonical  map[string]struct{} // normalized canonical values
	logger     *observability.Logger
}

// NewAliasResolver builds a resolver from the flat alias table
// (aliasKey → canonical path).
func NewAliasResolver(aliases map[string]string, logger *observability.Logger) *AliasResolver {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	r := &AliasResolver{
		aliases:    aliases,
		normalized: make(map[string]string, len(aliases)),
		canonical:  make(map[string]struct{}, len(aliases)),
		logger:     logger,
	}
	for key, value := range aliases {
		nk := Normalize(key)
		if nk == "" {
			continue
		}
		r.normalized[nk] = key
		r.keys = append(r.keys, nk)
		r.canonical[Normalize(value)] = struct{}{}
	}
	sort.Slice(r.keys, func(i, j int) bool {
		if len(r.keys[i]) != len(r.keys[j]) {
			return len(r.keys[i]) > len(r.keys[j])
		}
		return r.keys[i] < r.keys[j]
	})
	return r
}

// Resolve maps a raw hierarchy path onto its canonical form. Unmatched input
// is returned unchanged; that is not an error, just an unresolved path.
// Resolution is idempotent: values already in canonical form pass through.
func (r *AliasResolver) Resolve(raw string) string {
	if raw == "" || len(r.keys) == 0 {
		return raw
	}

	norm := Normalize(raw)
	if _, ok := r.canonical[norm]; ok {
		return raw
	}

	hadPrefix := strings.HasPrefix(normalizeLoose(raw), strings.ToLower(EnterprisePrefix))

	for _, nk := range r.keys {
		if !strings.HasSuffix(norm, nk) && !strings.Contains(norm, nk) {
			continue
		}
		canonical := r.aliases[r.normalized[nk]]
		if hadPrefix && !strings.HasPrefix(normalizeLoose(canonical), strings.ToLower(EnterprisePrefix)) {
			canonical = EnterprisePrefix + canonical
		}
		return canonical
	}

	r.logger.WithField("path", raw).Debug("no alias matched hierarchy path")
	return raw
}

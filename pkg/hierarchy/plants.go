package hierarchy

import (
	"os"
	"strings"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
	"github.com/safetypulse/safetypulse/pkg/observability"
)

// PlantResolver computes the set of plant names an AccessControl may act
// upon. Results are de-duplicated with original casing preserved, in
// sorted-traversal order of the catalog.
type PlantResolver struct {
	aliases *AliasResolver
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewPlantResolver creates a plant resolver backed by the given alias table.
func NewPlantResolver(aliases *AliasResolver, logger *observability.Logger) *PlantResolver {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if aliases == nil {
		aliases = NewAliasResolver(nil, logger)
	}
	return &PlantResolver{aliases: aliases, logger: logger}
}

// WithMetrics attaches counters for fallback strategy usage.
func (pr *PlantResolver) WithMetrics(m *observability.Metrics) *PlantResolver {
	pr.metrics = m
	return pr
}

// Resolve returns the accessible plants for the given access object.
// Segment and platform scopes that match nothing yield an empty set; the
// division scope runs a three-stage fallback chain before giving up.
func (pr *PlantResolver) Resolve(access *accesscontrol.AccessControl, cat Catalog) []string {
	if access == nil || cat == nil {
		return nil
	}

	switch access.Scope {
	case accesscontrol.ScopeEnterprise:
		return cat.AllPlants()
	case accesscontrol.ScopeSegment:
		return pr.segmentPlants(access, cat)
	case accesscontrol.ScopePlatform:
		return pr.platformPlants(access, cat)
	case accesscontrol.ScopeDivision:
		return pr.divisionPlants(access, cat)
	case accesscontrol.ScopePlant:
		return pr.plantMatches(access.Plant, cat)
	default:
		return pr.plantMatches(access.Plant, cat)
	}
}

// segmentPlants unions the full subtree of every segment whose key matches
// the user's segment name bidirectionally.
func (pr *PlantResolver) segmentPlants(access *accesscontrol.AccessControl, cat Catalog) []string {
	target := headComponent(pr.aliases.Resolve(access.HierarchyString))
	if target == "" {
		return nil
	}

	var plants []string
	seen := make(map[string]struct{})
	for _, seg := range cat.Segments() {
		if !containsEither(Normalize(seg), target) {
			continue
		}
		plants = appendUnique(plants, seen, subtreePlants(cat[seg])...)
	}
	return plants
}

// platformPlants matches at the platform tier across every segment; the
// segment key itself is not required to match.
func (pr *PlantResolver) platformPlants(access *accesscontrol.AccessControl, cat Catalog) []string {
	target := tailComponent(pr.aliases.Resolve(access.HierarchyString))
	if target == "" {
		return nil
	}

	var plants []string
	seen := make(map[string]struct{})
	for _, seg := range cat.Segments() {
		platforms := cat[seg]
		for _, plat := range sortedKeys(platforms) {
			if !containsEither(Normalize(plat), target) {
				continue
			}
			for _, reg := range sortedKeys(platforms[plat]) {
				for _, div := range sortedKeys(platforms[plat][reg]) {
					plants = appendUnique(plants, seen, platforms[plat][reg][div]...)
				}
			}
		}
	}
	return plants
}

// divisionPlants runs the tiered division match and, when it comes up empty,
// a chain of progressively looser strategies. The chain trades precision for
// recall: a user with a legitimate division assignment should never get zero
// plants, even if the last stage can over-include divisions that merely share
// a substring.
func (pr *PlantResolver) divisionPlants(access *accesscontrol.AccessControl, cat Catalog) []string {
	resolved := pr.aliases.Resolve(access.HierarchyString)
	target := divisionTargetFromPath(resolved)

	strategies := []struct {
		name string
		run  func() []string
	}{
		{"tiered", func() []string { return tieredDivisionMatch(target, cat) }},
		{"flat-path", func() []string { return flatPathMatch(resolved, cat) }},
		{"reappend-division", func() []string {
			if access.Division == "" {
				return nil
			}
			retry := divisionTargetFromPath(resolved + ">" + access.Division)
			return tieredDivisionMatch(retry, cat)
		}},
		{"division-substring", func() []string {
			plants := pr.plantMatches(access.Division, cat)
			if len(plants) > 0 {
				pr.logger.WithFields(map[string]interface{}{
					"email":    access.Email,
					"division": access.Division,
				}).Warn("division resolved via loose substring fallback; result may over-include plants")
			}
			return plants
		}},
	}

	for _, s := range strategies {
		if plants := s.run(); len(plants) > 0 {
			if s.name != "tiered" {
				if pr.metrics != nil {
					pr.metrics.PlantFallbacksTotal.WithLabelValues(s.name).Inc()
				}
				pr.logger.WithFields(map[string]interface{}{
					"email":    access.Email,
					"strategy": s.name,
				}).Debug("division plants resolved through fallback strategy")
			}
			return plants
		}
	}
	return nil
}

// plantMatches returns all catalog plants that contain, or are contained by,
// the given name.
func (pr *PlantResolver) plantMatches(name string, cat Catalog) []string {
	target := Normalize(name)
	if target == "" {
		return nil
	}
	var plants []string
	for _, plant := range cat.AllPlants() {
		if containsEither(Normalize(plant), target) {
			plants = append(plants, plant)
		}
	}
	return plants
}

// divisionTarget holds the normalized tail components of a hierarchy path.
type divisionTarget struct {
	segment  string
	platform string
	region   string
	division string
}

func divisionTargetFromPath(path string) divisionTarget {
	comps := pathComponents(path)
	if len(comps) > 0 && normalizeLoose(comps[0]) == strings.ToLower(strings.TrimSuffix(EnterprisePrefix, ">")) {
		comps = comps[1:]
	}
	var t divisionTarget
	n := len(comps)
	if n >= 1 {
		t.division = Normalize(comps[n-1])
	}
	if n >= 2 {
		t.region = Normalize(comps[n-2])
	}
	if n >= 3 {
		t.platform = Normalize(comps[n-3])
	}
	if n >= 4 {
		t.segment = Normalize(comps[n-4])
	}
	return t
}

// tieredDivisionMatch walks the catalog top-down with progressive narrowing:
// a tier is only considered once its parent tier matched. At the division
// tier three match strengths apply, strongest first by construction: key
// ends with the target, key contains ">"+target, key contains the target.
func tieredDivisionMatch(t divisionTarget, cat Catalog) []string {
	if t.division == "" {
		return nil
	}

	var plants []string
	seen := make(map[string]struct{})
	for _, seg := range cat.Segments() {
		if !tierMatches(seg, t.segment) {
			continue
		}
		platforms := cat[seg]
		for _, plat := range sortedKeys(platforms) {
			if !tierMatches(plat, t.platform) {
				continue
			}
			regions := platforms[plat]
			for _, reg := range sortedKeys(regions) {
				if !tierMatches(reg, t.region) {
					continue
				}
				divisions := regions[reg]
				for _, div := range sortedKeys(divisions) {
					nd := Normalize(div)
					if strings.HasSuffix(nd, t.division) ||
						strings.Contains(nd, ">"+t.division) ||
						strings.Contains(nd, t.division) {
						plants = appendUnique(plants, seen, divisions[div]...)
					}
				}
			}
		}
	}
	return plants
}

// tierMatches applies bidirectional containment where a target component is
// present; a missing component matches every key at that tier.
func tierMatches(key, target string) bool {
	if target == "" {
		return true
	}
	return containsEither(Normalize(key), target)
}

// flatPathMatch ignores tier boundaries entirely and compares the full
// concatenated path against every division key.
func flatPathMatch(path string, cat Catalog) []string {
	full := Normalize(path)
	if full == "" {
		return nil
	}

	var plants []string
	seen := make(map[string]struct{})
	for _, seg := range cat.Segments() {
		platforms := cat[seg]
		for _, plat := range sortedKeys(platforms) {
			regions := platforms[plat]
			for _, reg := range sortedKeys(regions) {
				divisions := regions[reg]
				for _, div := range sortedKeys(divisions) {
					if containsEither(Normalize(div), full) {
						plants = appendUnique(plants, seen, divisions[div]...)
					}
				}
			}
		}
	}
	return plants
}

// subtreePlants collects every plant under a segment subtree.
func subtreePlants(platforms map[string]map[string]map[string][]string) []string {
	var plants []string
	for _, plat := range sortedKeys(platforms) {
		for _, reg := range sortedKeys(platforms[plat]) {
			for _, div := range sortedKeys(platforms[plat][reg]) {
				plants = append(plants, platforms[plat][reg][div]...)
			}
		}
	}
	return plants
}

// headComponent returns the normalized first path component below the
// enterprise prefix.
func headComponent(path string) string {
	comps := pathComponents(path)
	if len(comps) > 0 && normalizeLoose(comps[0]) == strings.ToLower(strings.TrimSuffix(EnterprisePrefix, ">")) {
		comps = comps[1:]
	}
	if len(comps) == 0 {
		return ""
	}
	return Normalize(comps[0])
}

// tailComponent returns the normalized last path component.
func tailComponent(path string) string {
	comps := pathComponents(path)
	if len(comps) == 0 {
		return ""
	}
	return Normalize(comps[len(comps)-1])
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

package hierarchy

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Catalog is the organization tree: segment → platform → region → division →
// plant names. It is immutable once loaded; every accessor treats it as
// read-only.
type Catalog map[string]map[string]map[string]map[string][]string

// ParseCatalog decodes a catalog JSON document.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy catalog: %w", err)
	}
	return c, nil
}

// ParseAliases decodes the flat alias-mapping JSON document
// (aliasKey → canonical path).
func ParseAliases(data []byte) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse alias table: %w", err)
	}
	return m, nil
}

// Segments returns the segment keys in sorted order. Map iteration order is
// not stable in Go, so every traversal sorts keys to keep results
// deterministic for callers and tests.
func (c Catalog) Segments() []string {
	return sortedKeys(c)
}

// AllPlants returns every plant name in the catalog, de-duplicated with
// original casing preserved, in sorted-traversal order.
func (c Catalog) AllPlants() []string {
	var plants []string
	seen := make(map[string]struct{})
	c.walk(func(_, _, _, _ string, plant string) {
		if _, ok := seen[plant]; ok {
			return
		}
		seen[plant] = struct{}{}
		plants = append(plants, plant)
	})
	return plants
}

// walk visits every plant in sorted-traversal order.
func (c Catalog) walk(fn func(segment, platform, region, division, plant string)) {
	for _, seg := range sortedKeys(c) {
		platforms := c[seg]
		for _, plat := range sortedKeys(platforms) {
			regions := platforms[plat]
			for _, reg := range sortedKeys(regions) {
				divisions := regions[reg]
				for _, div := range sortedKeys(divisions) {
					for _, plant := range divisions[div] {
						fn(seg, plat, reg, div, plant)
					}
				}
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(dst []string, seen map[string]struct{}, values ...string) []string {
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

package accesscontrol

import "strings"

// Scoped is any record carrying the hierarchy path stamped at creation time
// from its author's resolved AccessControl.
type Scoped interface {
	Hierarchy() string
}

// FilterByHierarchy trims records to the caller's authorized subtree.
// Enterprise scope passes everything; segment, platform, and division scopes
// keep strict prefix matches; plant scope keeps exact matches only.
//
// This is deliberately a cheap prefix/equality test. Records are stamped
// with an already-canonical hierarchy path at creation, so no alias or fuzzy
// resolution happens here.
func FilterByHierarchy[T Scoped](records []T, access *AccessControl) []T {
	if access == nil {
		return nil
	}
	if access.Scope == ScopeEnterprise {
		return records
	}

	out := make([]T, 0, len(records))
	for _, record := range records {
		h := record.Hierarchy()
		switch access.Scope {
		case ScopePlant:
			if h == access.HierarchyString {
				out = append(out, record)
			}
		default:
			if strings.HasPrefix(h, access.HierarchyString) {
				out = append(out, record)
			}
		}
	}
	return out
}

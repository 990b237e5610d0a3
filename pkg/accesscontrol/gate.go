package accesscontrol

// MenuItem declares the visibility rule for a single UI action or menu
// entry: a permission flag, a group-claim fallback, or neither (admin only).
type MenuItem struct {
	ID             string   `json:"id"`
	Permission     string   `json:"permission,omitempty"`
	FallbackGroups []string `json:"fallback_groups,omitempty"`
}

// IsVisible decides whether a menu item is enabled for the given access.
// Permission flags win; items without one fall back to group-claim
// intersection; items declaring neither are visible only under the
// administrative override supplied by the identity layer. A nil access
// always hides everything.
func IsVisible(item MenuItem, access *AccessControl, adminOverride bool) bool {
	if access == nil {
		return false
	}

	if item.Permission != "" {
		return access.Permissions.Flag(item.Permission)
	}

	if len(item.FallbackGroups) > 0 {
		allowed := make(map[string]struct{}, len(item.FallbackGroups))
		for _, g := range item.FallbackGroups {
			allowed[g] = struct{}{}
		}
		for _, g := range access.CognitoGroups {
			if _, ok := allowed[g]; ok {
				return true
			}
		}
		return false
	}

	return adminOverride
}

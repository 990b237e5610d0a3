package accesscontrol

import (
	"context"
	"fmt"
	"strings"
)

// RolePermissionStore is the read-only permission-table collaborator.
// Implementations return (nil, nil) when no row exists for the title.
type RolePermissionStore interface {
	GetRolePermission(ctx context.Context, roleTitle string) (*RolePermissionRecord, error)
}

// PermissionResolver maps a role title to a permission set: exact store
// lookup first, then an ordered rule table keyed by case-insensitive
// substring match, first match wins. Unknown titles land on a minimal
// default bundle, so the resolver always produces a fully populated set.
type PermissionResolver struct {
	store RolePermissionStore
	rules []fallbackRule
}

type fallbackRule struct {
	name  string
	match func(title string) bool
	perms PermissionSet
}

// NewPermissionResolver creates a permission resolver over the given store.
func NewPermissionResolver(store RolePermissionStore) *PermissionResolver {
	return &PermissionResolver{
		store: store,
		rules: defaultFallbackRules(),
	}
}

// Resolve returns the permission set for roleTitle. Absence of an explicit
// permission row is normal and falls through to the rule table; only store
// failures surface as errors.
func (r *PermissionResolver) Resolve(ctx context.Context, roleTitle string) (PermissionSet, error) {
	if r.store != nil {
		record, err := r.store.GetRolePermission(ctx, roleTitle)
		if err != nil {
			return PermissionSet{}, fmt.Errorf("failed to look up role permissions: %w", err)
		}
		if record != nil {
			return record.Permissions, nil
		}
	}

	title := strings.ToLower(strings.TrimSpace(roleTitle))
	for _, rule := range r.rules {
		if rule.match(title) {
			return rule.perms, nil
		}
	}

	// Unreachable: the last rule matches everything.
	return minimalBundle(), nil
}

// titleContains builds a predicate over the lower-cased role title.
func titleContains(fragment string) func(string) bool {
	return func(title string) bool {
		return strings.Contains(title, fragment)
	}
}

func defaultFallbackRules() []fallbackRule {
	return []fallbackRule{
		{
			name:  "plant safety manager",
			match: titleContains("plant safety manager"),
			perms: PermissionSet{
				CanReportInjuryIllness:       true,
				CanReportObservation:         true,
				CanSubmitSafetyRecognition:   true,
				CanPerformFirstReportActions: true,
				CanViewPII:                   true,
				CanPerformQuickFixActions:    true,
				CanPerformIncidentRCAActions: true,
				CanViewOSHALogs:              true,
				CanViewOpenClosedReports:     true,
				CanViewSafetyAlerts:          true,
				CanViewLessonsLearned:        true,
				CanViewDashboard:             true,
				CanSubmitTicket:              true,
			},
		},
		{
			name:  "plant hr manager",
			match: titleContains("plant hr manager"),
			perms: PermissionSet{
				CanReportInjuryIllness:       true,
				CanReportObservation:         true,
				CanSubmitSafetyRecognition:   true,
				CanPerformFirstReportActions: true,
				CanViewPII:                   true,
				CanViewOSHALogs:              true,
				CanViewOpenClosedReports:     true,
				CanViewSafetyAlerts:          true,
				CanViewLessonsLearned:        true,
				CanViewDashboard:             true,
				CanSubmitTicket:              true,
			},
		},
		{
			name:  "plant manager",
			match: titleContains("plant manager"),
			perms: PermissionSet{
				CanReportInjuryIllness:            true,
				CanReportObservation:              true,
				CanSubmitSafetyRecognition:        true,
				CanPerformFirstReportActions:      true,
				CanPerformQuickFixActions:         true,
				CanPerformIncidentRCAActions:      true,
				CanPerformApprovalIncidentClosure: true,
				CanViewOpenClosedReports:          true,
				CanViewSafetyAlerts:               true,
				CanViewLessonsLearned:             true,
				CanViewDashboard:                  true,
				CanSubmitTicket:                   true,
			},
		},
		{
			name:  "default",
			match: func(string) bool { return true },
			perms: minimalBundle(),
		},
	}
}

// minimalBundle grants report creation and passive viewing only; every
// action, approval, and PII flag stays denied.
func minimalBundle() PermissionSet {
	return PermissionSet{
		CanReportInjuryIllness:     true,
		CanReportObservation:       true,
		CanSubmitSafetyRecognition: true,
		CanViewOpenClosedReports:   true,
		CanViewSafetyAlerts:        true,
		CanViewLessonsLearned:      true,
	}
}

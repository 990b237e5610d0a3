package accesscontrol

import (
	"time"
)

// AccessScope is the tier of the hierarchy a user's authority covers.
type AccessScope string

const (
	ScopeEnterprise AccessScope = "ENTERPRISE"
	ScopeSegment    AccessScope = "SEGMENT"
	ScopePlatform   AccessScope = "PLATFORM"
	ScopeDivision   AccessScope = "DIVISION"
	ScopePlant      AccessScope = "PLANT"
)

// ScopeForLevel maps a stored hierarchy level (1–5) to its access scope.
// Anything unmapped collapses to plant scope, the most restrictive tier.
func ScopeForLevel(level int) AccessScope {
	switch level {
	case 1:
		return ScopeEnterprise
	case 2:
		return ScopeSegment
	case 3:
		return ScopePlatform
	case 4:
		return ScopeDivision
	case 5:
		return ScopePlant
	default:
		return ScopePlant
	}
}

// PermissionSet holds one flag per capability. A zero value denies
// everything.
type PermissionSet struct {
	CanReportInjuryIllness            bool `json:"can_report_injury_illness"`
	CanReportObservation              bool `json:"can_report_observation"`
	CanSubmitSafetyRecognition        bool `json:"can_submit_safety_recognition"`
	CanPerformFirstReportActions      bool `json:"can_perform_first_report_actions"`
	CanViewPII                        bool `json:"can_view_pii"`
	CanPerformQuickFixActions         bool `json:"can_perform_quick_fix_actions"`
	CanPerformIncidentRCAActions      bool `json:"can_perform_incident_rca_actions"`
	CanPerformApprovalIncidentClosure bool `json:"can_perform_approval_incident_closure"`
	CanViewOSHALogs                   bool `json:"can_view_osha_logs"`
	CanViewOpenClosedReports          bool `json:"can_view_open_closed_reports"`
	CanViewSafetyAlerts               bool `json:"can_view_safety_alerts"`
	CanViewLessonsLearned             bool `json:"can_view_lessons_learned"`
	CanViewDashboard                  bool `json:"can_view_dashboard"`
	CanSubmitTicket                   bool `json:"can_submit_ticket"`
	CanApproveLessonsLearned          bool `json:"can_approve_lessons_learned"`
}

// Permission flag names, used by menu items and the HTTP surface to refer to
// a single capability.
const (
	PermReportInjuryIllness     = "report_injury_illness"
	PermReportObservation       = "report_observation"
	PermSafetyRecognition       = "safety_recognition"
	PermFirstReportActions      = "first_report_actions"
	PermViewPII                 = "view_pii"
	PermQuickFixActions         = "quick_fix_actions"
	PermIncidentRCAActions      = "incident_rca_actions"
	PermApprovalIncidentClosure = "approval_incident_closure"
	PermViewOSHALogs            = "view_osha_logs"
	PermViewOpenClosedReports   = "view_open_closed_reports"
	PermViewSafetyAlerts        = "view_safety_alerts"
	PermViewLessonsLearned      = "view_lessons_learned"
	PermViewDashboard           = "view_dashboard"
	PermSubmitTicket            = "submit_ticket"
	PermApproveLessonsLearned   = "approve_lessons_learned"
)

// Flag returns the capability flag addressed by name. Unknown names are
// denied.
func (p PermissionSet) Flag(name string) bool {
	switch name {
	case PermReportInjuryIllness:
		return p.CanReportInjuryIllness
	case PermReportObservation:
		return p.CanReportObservation
	case PermSafetyRecognition:
		return p.CanSubmitSafetyRecognition
	case PermFirstReportActions:
		return p.CanPerformFirstReportActions
	case PermViewPII:
		return p.CanViewPII
	case PermQuickFixActions:
		return p.CanPerformQuickFixActions
	case PermIncidentRCAActions:
		return p.CanPerformIncidentRCAActions
	case PermApprovalIncidentClosure:
		return p.CanPerformApprovalIncidentClosure
	case PermViewOSHALogs:
		return p.CanViewOSHALogs
	case PermViewOpenClosedReports:
		return p.CanViewOpenClosedReports
	case PermViewSafetyAlerts:
		return p.CanViewSafetyAlerts
	case PermViewLessonsLearned:
		return p.CanViewLessonsLearned
	case PermViewDashboard:
		return p.CanViewDashboard
	case PermSubmitTicket:
		return p.CanSubmitTicket
	case PermApproveLessonsLearned:
		return p.CanApproveLessonsLearned
	default:
		return false
	}
}

// UserRoleRecord is the persisted per-user row, keyed by email. Created by an
// administrative process and soft-deactivated via IsActive, never hard
// deleted.
type UserRoleRecord struct {
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	RoleTitle       string    `json:"role_title"`
	Enterprise      string    `json:"enterprise"`
	Segment         string    `json:"segment"`
	Platform        string    `json:"platform"`
	Division        string    `json:"division"`
	Plant           string    `json:"plant"`
	HierarchyString string    `json:"hierarchy_string"`
	Level           int       `json:"level"`
	CognitoGroups   []string  `json:"cognito_groups"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RolePermissionRecord is the administrator-managed permission row, keyed by
// role title.
type RolePermissionRecord struct {
	RoleTitle   string        `json:"role_title"`
	Permissions PermissionSet `json:"permissions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// AccessControl is the derived, never-persisted access object composed on
// every resolution call.
type AccessControl struct {
	Email           string        `json:"email"`
	Name            string        `json:"name"`
	RoleTitle       string        `json:"role_title"`
	HierarchyString string        `json:"hierarchy_string"`
	Division        string        `json:"division"`
	Plant           string        `json:"plant"`
	Level           int           `json:"level"`
	Scope           AccessScope   `json:"scope"`
	Permissions     PermissionSet `json:"permissions"`
	CognitoGroups   []string      `json:"cognito_groups"`
	ResolvedAt      time.Time     `json:"resolved_at"`
}

package api

import "github.com/safetypulse/safetypulse/pkg/accesscontrol"

// DefaultMenu is the navigation structure of the reporting application.
// Items bound to a permission show when the caller's permission set carries
// it; items with fallback groups show on group membership; items with
// neither show only under the administrator override.
func DefaultMenu() []accesscontrol.MenuItem {
	return []accesscontrol.MenuItem{
		{ID: "dashboard", Permission: accesscontrol.PermViewDashboard},
		{ID: "report-injury-illness", Permission: accesscontrol.PermReportInjuryIllness},
		{ID: "report-observation", Permission: accesscontrol.PermReportObservation},
		{ID: "safety-recognition", Permission: accesscontrol.PermSafetyRecognition},
		{ID: "open-closed-reports", Permission: accesscontrol.PermViewOpenClosedReports},
		{ID: "osha-logs", Permission: accesscontrol.PermViewOSHALogs},
		{ID: "safety-alerts", Permission: accesscontrol.PermViewSafetyAlerts},
		{ID: "lessons-learned", Permission: accesscontrol.PermViewLessonsLearned},
		{ID: "submit-ticket", Permission: accesscontrol.PermSubmitTicket},
		{ID: "safety-council", FallbackGroups: []string{"safety-council", "safety-leads"}},
		{ID: "administration"},
	}
}

// Package reports holds the safety incident reports and recognitions that
// the access engine scopes. Every record carries the full hierarchy path of
// the plant it was filed against; visibility is decided purely on that path.
package reports

import "time"

// ReportType distinguishes the incident report flavors.
type ReportType string

const (
	TypeInjuryIllness ReportType = "injury_illness"
	TypeObservation   ReportType = "observation"
)

// Report statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Report is a safety incident report.
type Report struct {
	ID              string     `json:"id"`
	Type            ReportType `json:"type"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	ReporterEmail   string     `json:"reporter_email"`
	HierarchyString string     `json:"hierarchy_string"`
	Plant           string     `json:"plant"`
	ContainsPII     bool       `json:"contains_pii"`
	AttachmentKeys  []string   `json:"attachment_keys,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Hierarchy returns the record's hierarchy path for scope filtering.
func (r Report) Hierarchy() string { return r.HierarchyString }

// Recognition is a peer safety recognition entry.
type Recognition struct {
	ID              string    `json:"id"`
	RecipientEmail  string    `json:"recipient_email"`
	SubmitterEmail  string    `json:"submitter_email"`
	Message         string    `json:"message"`
	HierarchyString string    `json:"hierarchy_string"`
	CreatedAt       time.Time `json:"created_at"`
}

// Hierarchy returns the record's hierarchy path for scope filtering.
func (r Recognition) Hierarchy() string { return r.HierarchyString }

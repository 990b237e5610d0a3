package reports

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
	"github.com/safetypulse/safetypulse/pkg/observability"
)

// ErrForbidden is returned when the caller's permissions or scope do not
// allow the requested operation.
var ErrForbidden = fmt.Errorf("forbidden")

// ErrNoAttachmentStore is returned when attachment operations are invoked
// without an object store configured.
var ErrNoAttachmentStore = fmt.Errorf("attachment storage not configured")

// ReportStore is the persistence surface the service needs.
type ReportStore interface {
	InsertReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, reportType ReportType, status string, limit int) ([]Report, error)
	UpdateReportStatus(ctx context.Context, id, status string) error
	AppendAttachment(ctx context.Context, id, key string) error
	InsertRecognition(ctx context.Context, rec *Recognition) error
	ListRecognitions(ctx context.Context, limit int) ([]Recognition, error)
}

// ObjectStore is the blob storage surface for report attachments.
type ObjectStore interface {
	Upload(ctx context.Context, reportID, filename, contentType string, content io.Reader) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Service applies permission gates and hierarchy scoping on top of the
// report store. Every read path runs through FilterByHierarchy so a caller
// can never see a record outside their subtree.
type Service struct {
	store       ReportStore
	attachments ObjectStore
	logger      *observability.Logger
}

// NewService creates a report service.
func NewService(store ReportStore, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	return &Service{store: store, logger: logger}
}

// WithAttachments enables attachment upload and download.
func (s *Service) WithAttachments(store ObjectStore) *Service {
	s.attachments = store
	return s
}

// CreateReport files a new report on behalf of the caller. The record is
// stamped with the caller's own hierarchy path; callers cannot file reports
// outside their assignment.
func (s *Service) CreateReport(ctx context.Context, access *accesscontrol.AccessControl, report *Report) error {
	if access == nil {
		return ErrForbidden
	}
	switch report.Type {
	case TypeInjuryIllness:
		if !access.Permissions.CanReportInjuryIllness {
			return ErrForbidden
		}
	case TypeObservation:
		if !access.Permissions.CanReportObservation {
			return ErrForbidden
		}
	default:
		return fmt.Errorf("unknown report type: %q", report.Type)
	}

	report.ID = uuid.New().String()
	report.Status = StatusOpen
	report.ReporterEmail = access.Email
	report.HierarchyString = access.HierarchyString
	report.Plant = access.Plant
	if err := s.store.InsertReport(ctx, report); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"report_id": report.ID,
		"type":      report.Type,
		"reporter":  report.ReporterEmail,
	}).Info("Report created")
	return nil
}

// ListReports returns the reports visible to the caller, PII-redacted when
// the caller lacks the PII permission.
func (s *Service) ListReports(ctx context.Context, access *accesscontrol.AccessControl, reportType ReportType, status string) ([]Report, error) {
	if access == nil || !access.Permissions.CanViewOpenClosedReports {
		return nil, ErrForbidden
	}
	all, err := s.store.ListReports(ctx, reportType, status, 0)
	if err != nil {
		return nil, err
	}
	visible := accesscontrol.FilterByHierarchy(all, access)
	if !access.Permissions.CanViewPII {
		for i := range visible {
			redactReport(&visible[i])
		}
	}
	return visible, nil
}

// GetReport returns a single report if it falls inside the caller's scope.
// Out-of-scope reports read as not found, not forbidden.
func (s *Service) GetReport(ctx context.Context, access *accesscontrol.AccessControl, id string) (*Report, error) {
	if access == nil || !access.Permissions.CanViewOpenClosedReports {
		return nil, ErrForbidden
	}
	report, err := s.store.GetReport(ctx, id)
	if err != nil || report == nil {
		return nil, err
	}
	if len(accesscontrol.FilterByHierarchy([]Report{*report}, access)) == 0 {
		return nil, nil
	}
	if !access.Permissions.CanViewPII {
		redactReport(report)
	}
	return report, nil
}

// CloseReport transitions an in-scope report to closed. Requires the
// incident-closure approval permission.
func (s *Service) CloseReport(ctx context.Context, access *accesscontrol.AccessControl, id string) error {
	if access == nil || !access.Permissions.CanPerformApprovalIncidentClosure {
		return ErrForbidden
	}
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if report == nil || len(accesscontrol.FilterByHierarchy([]Report{*report}, access)) == 0 {
		return fmt.Errorf("report not found: %s", id)
	}
	return s.store.UpdateReportStatus(ctx, id, StatusClosed)
}

// AddAttachment uploads attachment content for an in-scope report and
// records the object key on it. The reporter may always attach to their own
// report; anyone else needs report-viewing permission and scope.
func (s *Service) AddAttachment(ctx context.Context, access *accesscontrol.AccessControl, reportID, filename, contentType string, content io.Reader) (string, error) {
	if s.attachments == nil {
		return "", ErrNoAttachmentStore
	}
	report, err := s.visibleReportForAttachment(ctx, access, reportID)
	if err != nil {
		return "", err
	}

	key, err := s.attachments.Upload(ctx, report.ID, filename, contentType, content)
	if err != nil {
		return "", err
	}
	if err := s.store.AppendAttachment(ctx, report.ID, key); err != nil {
		return "", err
	}
	s.logger.WithFields(map[string]interface{}{
		"report_id": report.ID,
		"key":       key,
	}).Info("Attachment uploaded")
	return key, nil
}

// GetAttachment streams attachment content for an in-scope report. The key
// must be one recorded on the report; arbitrary object keys are rejected.
func (s *Service) GetAttachment(ctx context.Context, access *accesscontrol.AccessControl, reportID, key string) (io.ReadCloser, string, error) {
	if s.attachments == nil {
		return nil, "", ErrNoAttachmentStore
	}
	report, err := s.visibleReportForAttachment(ctx, access, reportID)
	if err != nil {
		return nil, "", err
	}

	found := false
	for _, k := range report.AttachmentKeys {
		if k == key {
			found = true
			break
		}
	}
	if !found {
		return nil, "", fmt.Errorf("attachment not found: %s", key)
	}
	return s.attachments.Download(ctx, key)
}

func (s *Service) visibleReportForAttachment(ctx context.Context, access *accesscontrol.AccessControl, reportID string) (*Report, error) {
	if access == nil {
		return nil, ErrForbidden
	}
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("report not found: %s", reportID)
	}
	if report.ReporterEmail == access.Email {
		return report, nil
	}
	if !access.Permissions.CanViewOpenClosedReports ||
		len(accesscontrol.FilterByHierarchy([]Report{*report}, access)) == 0 {
		return nil, fmt.Errorf("report not found: %s", reportID)
	}
	return report, nil
}

// SubmitRecognition files a peer recognition stamped with the caller's
// hierarchy path.
func (s *Service) SubmitRecognition(ctx context.Context, access *accesscontrol.AccessControl, rec *Recognition) error {
	if access == nil || !access.Permissions.CanSubmitSafetyRecognition {
		return ErrForbidden
	}
	if strings.TrimSpace(rec.RecipientEmail) == "" {
		return fmt.Errorf("recognition recipient is required")
	}
	rec.ID = uuid.New().String()
	rec.SubmitterEmail = access.Email
	rec.HierarchyString = access.HierarchyString
	return s.store.InsertRecognition(ctx, rec)
}

// ListRecognitions returns the recognitions visible to the caller.
func (s *Service) ListRecognitions(ctx context.Context, access *accesscontrol.AccessControl) ([]Recognition, error) {
	if access == nil {
		return nil, ErrForbidden
	}
	all, err := s.store.ListRecognitions(ctx, 0)
	if err != nil {
		return nil, err
	}
	return accesscontrol.FilterByHierarchy(all, access), nil
}

// redactReport blanks the fields that can identify the people involved.
func redactReport(report *Report) {
	if !report.ContainsPII {
		return
	}
	report.ReporterEmail = ""
	report.Description = "[redacted]"
}

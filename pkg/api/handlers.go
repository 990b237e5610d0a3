package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
	"github.com/safetypulse/safetypulse/pkg/hierarchy"
	"github.com/safetypulse/safetypulse/pkg/httputil"
	"github.com/safetypulse/safetypulse/pkg/reports"
)

// getAccess returns the caller's resolved access control object.
func (s *Server) getAccess(w http.ResponseWriter, r *http.Request) {
	access := accessFrom(r.Context())
	if access == nil {
		httputil.WriteNotFoundError(w, "no active role assignment")
		return
	}
	httputil.WriteSuccess(w, access)
}

// plantsResponse lists the plants the caller may act upon.
type plantsResponse struct {
	Scope  accesscontrol.AccessScope `json:"scope"`
	Plants []string                  `json:"plants"`
}

// getPlants resolves the caller's accessible plant set against the current
// catalog snapshot.
func (s *Server) getPlants(w http.ResponseWriter, r *http.Request) {
	access := accessFrom(r.Context())
	if access == nil {
		httputil.WriteNotFoundError(w, "no active role assignment")
		return
	}
	snap := s.catalog.Snapshot()
	if snap == nil {
		httputil.WriteServiceUnavailable(w, "hierarchy catalog not loaded")
		return
	}
	resolver := hierarchy.NewPlantResolver(snap.Aliases, s.logger).WithMetrics(s.metrics)
	plants := resolver.Resolve(access, snap.Catalog)
	if plants == nil {
		plants = []string{}
	}
	if s.metrics != nil {
		s.metrics.PlantResolutionsTotal.WithLabelValues(string(access.Scope)).Inc()
		if len(plants) == 0 {
			s.metrics.EmptyPlantSetsTotal.WithLabelValues(string(access.Scope)).Inc()
		}
	}
	httputil.WriteSuccess(w, plantsResponse{Scope: access.Scope, Plants: plants})
}

// menuEntry is a single visible navigation item.
type menuEntry struct {
	ID string `json:"id"`
}

// getMenu returns the navigation items visible to the caller.
func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	access := accessFrom(r.Context())
	adminOverride := session != nil && session.Admin

	visible := make([]menuEntry, 0, len(s.menu))
	for _, item := range s.menu {
		if accesscontrol.IsVisible(item, access, adminOverride) {
			visible = append(visible, menuEntry{ID: item.ID})
		}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"items": visible})
}

// createReportRequest is the payload for filing a new report.
type createReportRequest struct {
	Type        reports.ReportType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	ContainsPII bool               `json:"contains_pii"`
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	report := &reports.Report{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		ContainsPII: req.ContainsPII,
	}
	err := s.reports.CreateReport(r.Context(), accessFrom(r.Context()), report)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, report)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	reportType := reports.ReportType(httputil.ParseQueryString(r, "type", ""))
	status := httputil.ParseQueryString(r, "status", "")

	list, err := s.reports.ListReports(r.Context(), accessFrom(r.Context()), reportType, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []reports.Report{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"reports": list})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	report, err := s.reports.GetReport(r.Context(), accessFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if report == nil {
		httputil.WriteNotFoundError(w, "report not found")
		return
	}
	httputil.WriteSuccess(w, report)
}

func (s *Server) closeReport(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.reports.CloseReport(r.Context(), accessFrom(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// uploadAttachment accepts a multipart form with a single "file" field and
// stores it against the report.
func (s *Server) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	key, err := s.reports.AddAttachment(r.Context(), accessFrom(r.Context()),
		id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, map[string]string{"key": key})
}

func (s *Server) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}
	body, contentType, err := s.reports.GetAttachment(r.Context(), accessFrom(r.Context()), id, key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer body.Close()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	io.Copy(w, body)
}

// submitRecognitionRequest is the payload for a peer recognition.
type submitRecognitionRequest struct {
	RecipientEmail string `json:"recipient_email"`
	Message        string `json:"message"`
}

func (s *Server) submitRecognition(w http.ResponseWriter, r *http.Request) {
	var req submitRecognitionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	rec := &reports.Recognition{
		RecipientEmail: req.RecipientEmail,
		Message:        req.Message,
	}
	if err := s.reports.SubmitRecognition(r.Context(), accessFrom(r.Context()), rec); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, rec)
}

func (s *Server) listRecognitions(w http.ResponseWriter, r *http.Request) {
	list, err := s.reports.ListRecognitions(r.Context(), accessFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []reports.Recognition{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"recognitions": list})
}

// Admin handlers

func (s *Server) upsertUserRole(w http.ResponseWriter, r *http.Request) {
	if s.adminStore == nil {
		httputil.WriteServiceUnavailable(w, "administration not configured")
		return
	}
	var record accesscontrol.UserRoleRecord
	if !httputil.ParseJSONOrError(w, r, &record) {
		return
	}
	if !httputil.RequireNonEmpty(w, record.Email, "email") {
		return
	}
	if err := s.adminStore.UpsertUserRole(r.Context(), &record); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	s.access.InvalidateCache(r.Context(), record.Email)
	httputil.WriteSuccess(w, record)
}

func (s *Server) deactivateUserRole(w http.ResponseWriter, r *http.Request) {
	if s.adminStore == nil {
		httputil.WriteServiceUnavailable(w, "administration not configured")
		return
	}
	email, ok := httputil.ParsePathStringOrError(w, r, "email")
	if !ok {
		return
	}
	if err := s.adminStore.DeactivateUserRole(r.Context(), email); err != nil {
		if strings.Contains(err.Error(), "not found") {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	s.access.InvalidateCache(r.Context(), email)
	httputil.WriteNoContent(w)
}

func (s *Server) upsertRolePermission(w http.ResponseWriter, r *http.Request) {
	if s.adminStore == nil {
		httputil.WriteServiceUnavailable(w, "administration not configured")
		return
	}
	roleTitle, ok := httputil.ParsePathStringOrError(w, r, "roleTitle")
	if !ok {
		return
	}
	var perms accesscontrol.PermissionSet
	if !httputil.ParseJSONOrError(w, r, &perms) {
		return
	}
	record := &accesscontrol.RolePermissionRecord{RoleTitle: roleTitle, Permissions: perms}
	if err := s.adminStore.UpsertRolePermission(r.Context(), record); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Load(r.Context()); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	snap := s.catalog.Snapshot()
	httputil.WriteSuccess(w, map[string]interface{}{
		"loaded_at": snap.LoadedAt,
		"segments":  len(snap.Catalog),
	})
}

// writeServiceError maps report service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrForbidden):
		httputil.WriteForbidden(w, "insufficient permissions")
	case errors.Is(err, reports.ErrNoAttachmentStore):
		httputil.WriteServiceUnavailable(w, err.Error())
	case strings.Contains(err.Error(), "not found"):
		httputil.WriteNotFoundError(w, err.Error())
	case strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "unknown report type"):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

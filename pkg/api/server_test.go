package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
	"github.com/safetypulse/safetypulse/pkg/hierarchy"
	"github.com/safetypulse/safetypulse/pkg/identity"
	"github.com/safetypulse/safetypulse/pkg/reports"
)

const testCatalogJSON = `{
	"ITW>Automotive OEM>": {
		"ITW>Automotive OEM>Fasteners & Interior>": {
			"ITW>Automotive OEM>Fasteners & Interior>North America>": {
				"ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America>": ["Plant A", "Plant B"]
			}
		}
	}
}`

const deltarPath = "ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America"

type fakeUserStore struct {
	records map[string]*accesscontrol.UserRoleRecord
}

func (f *fakeUserStore) GetUserRole(_ context.Context, email string) (*accesscontrol.UserRoleRecord, error) {
	return f.records[email], nil
}

func (f *fakeUserStore) ListUserRoles(_ context.Context, _ int) ([]accesscontrol.UserRoleRecord, error) {
	var out []accesscontrol.UserRoleRecord
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, nil
}

type fakePermStore struct{}

func (fakePermStore) GetRolePermission(_ context.Context, _ string) (*accesscontrol.RolePermissionRecord, error) {
	return nil, nil
}

type fakeReportStore struct {
	reports []reports.Report
}

func (f *fakeReportStore) InsertReport(_ context.Context, report *reports.Report) error {
	f.reports = append(f.reports, *report)
	return nil
}

func (f *fakeReportStore) GetReport(_ context.Context, id string) (*reports.Report, error) {
	for i := range f.reports {
		if f.reports[i].ID == id {
			r := f.reports[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeReportStore) ListReports(_ context.Context, _ reports.ReportType, _ string, _ int) ([]reports.Report, error) {
	return f.reports, nil
}

func (f *fakeReportStore) UpdateReportStatus(_ context.Context, _, _ string) error { return nil }

func (f *fakeReportStore) AppendAttachment(_ context.Context, id, key string) error {
	for i := range f.reports {
		if f.reports[i].ID == id {
			f.reports[i].AttachmentKeys = append(f.reports[i].AttachmentKeys, key)
		}
	}
	return nil
}

func (f *fakeReportStore) InsertRecognition(_ context.Context, rec *reports.Recognition) error {
	return nil
}

func (f *fakeReportStore) ListRecognitions(_ context.Context, _ int) ([]reports.Recognition, error) {
	return nil, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	users := &fakeUserStore{records: map[string]*accesscontrol.UserRoleRecord{
		"safety@example.com": {
			Email:           "safety@example.com",
			RoleTitle:       "Plant Safety Manager",
			HierarchyString: deltarPath,
			Division:        "Deltar North America",
			Level:           4,
			IsActive:        true,
		},
		"inactive@example.com": {
			Email:    "inactive@example.com",
			Level:    5,
			IsActive: false,
		},
	}}
	resolver := accesscontrol.NewUserAccessResolver(users,
		accesscontrol.NewPermissionResolver(fakePermStore{}))

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(catalogPath, []byte(testCatalogJSON), 0644); err != nil {
		t.Fatal(err)
	}
	catalog := hierarchy.NewLoader(hierarchy.LoaderConfig{CatalogFile: catalogPath})
	if err := catalog.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	return NewServer(
		&identity.StaticProvider{AdminGroup: "platform-admins"},
		resolver,
		catalog,
		reports.NewService(&fakeReportStore{}, nil),
	)
}

func doRequest(t *testing.T, s *Server, method, path, email string, groups string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if email != "" {
		req.Header.Set("X-User-Email", email)
	}
	if groups != "" {
		req.Header.Set("X-User-Groups", groups)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	s := testServer(t)
	w := doRequest(t, s, "GET", "/api/v1/access/me", "", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestGetAccess(t *testing.T) {
	s := testServer(t)

	w := doRequest(t, s, "GET", "/api/v1/access/me", "safety@example.com", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var access accesscontrol.AccessControl
	if err := json.Unmarshal(w.Body.Bytes(), &access); err != nil {
		t.Fatal(err)
	}
	if access.Scope != accesscontrol.ScopeDivision {
		t.Errorf("scope = %v", access.Scope)
	}
	if !access.Permissions.CanViewPII {
		t.Error("safety manager fallback permissions not applied")
	}
}

func TestGetAccessUnknownUser(t *testing.T) {
	s := testServer(t)
	w := doRequest(t, s, "GET", "/api/v1/access/me", "stranger@example.com", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetAccessInactiveUser(t *testing.T) {
	s := testServer(t)
	w := doRequest(t, s, "GET", "/api/v1/access/me", "inactive@example.com", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetPlants(t *testing.T) {
	s := testServer(t)

	w := doRequest(t, s, "GET", "/api/v1/access/me/plants", "safety@example.com", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp plantsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Scope != accesscontrol.ScopeDivision {
		t.Errorf("scope = %v", resp.Scope)
	}
	if len(resp.Plants) != 2 || resp.Plants[0] != "Plant A" {
		t.Errorf("plants = %v", resp.Plants)
	}
}

func TestGetMenu(t *testing.T) {
	s := testServer(t)

	w := doRequest(t, s, "GET", "/api/v1/access/me/menu", "safety@example.com", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Items []menuEntry `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	have := make(map[string]bool)
	for _, item := range resp.Items {
		have[item.ID] = true
	}
	if !have["osha-logs"] {
		t.Error("safety manager should see OSHA logs")
	}
	if have["administration"] {
		t.Error("non-admin should not see administration")
	}
}

func TestCreateAndListReports(t *testing.T) {
	s := testServer(t)

	w := doRequest(t, s, "POST", "/api/v1/reports", "safety@example.com", "",
		createReportRequest{Type: reports.TypeObservation, Title: "Cable across walkway"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created reports.Report
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.HierarchyString != deltarPath {
		t.Errorf("report hierarchy = %q", created.HierarchyString)
	}

	w = doRequest(t, s, "GET", "/api/v1/reports", "safety@example.com", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listed struct {
		Reports []reports.Report `json:"reports"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Reports) != 1 {
		t.Errorf("reports = %+v", listed.Reports)
	}
}

func TestCreateReportMissingTitle(t *testing.T) {
	s := testServer(t)
	w := doRequest(t, s, "POST", "/api/v1/reports", "safety@example.com", "",
		createReportRequest{Type: reports.TypeObservation})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCloseReportRequiresApprovalPermission(t *testing.T) {
	s := testServer(t)

	w := doRequest(t, s, "POST", "/api/v1/reports", "safety@example.com", "",
		createReportRequest{Type: reports.TypeObservation, Title: "x"})
	var created reports.Report
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	// Safety managers do not hold closure approval.
	w = doRequest(t, s, "POST", "/api/v1/reports/"+created.ID+"/close", "safety@example.com", "", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("close status = %d, want 403", w.Code)
	}
}

func TestAdminEndpointsRequireAdminGroup(t *testing.T) {
	s := testServer(t)

	w := doRequest(t, s, "POST", "/api/v1/admin/catalog/reload", "safety@example.com", "", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	w = doRequest(t, s, "POST", "/api/v1/admin/catalog/reload", "safety@example.com", "platform-admins", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestRequestIDEchoed(t *testing.T) {
	s := testServer(t)
	w := doRequest(t, s, "GET", "/api/v1/access/me", "safety@example.com", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

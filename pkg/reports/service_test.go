package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/safetypulse/safetypulse/pkg/accesscontrol"
)

type fakeStore struct {
	reports      []Report
	recognitions []Recognition
	statusByID   map[string]string
}

func (f *fakeStore) InsertReport(_ context.Context, report *Report) error {
	f.reports = append(f.reports, *report)
	return nil
}

func (f *fakeStore) GetReport(_ context.Context, id string) (*Report, error) {
	for i := range f.reports {
		if f.reports[i].ID == id {
			r := f.reports[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListReports(_ context.Context, reportType ReportType, status string, _ int) ([]Report, error) {
	var out []Report
	for _, r := range f.reports {
		if reportType != "" && r.Type != reportType {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) UpdateReportStatus(_ context.Context, id, status string) error {
	if f.statusByID == nil {
		f.statusByID = make(map[string]string)
	}
	f.statusByID[id] = status
	return nil
}

func (f *fakeStore) AppendAttachment(_ context.Context, id, key string) error {
	for i := range f.reports {
		if f.reports[i].ID == id {
			f.reports[i].AttachmentKeys = append(f.reports[i].AttachmentKeys, key)
			return nil
		}
	}
	return errors.New("report not found")
}

func (f *fakeStore) InsertRecognition(_ context.Context, rec *Recognition) error {
	f.recognitions = append(f.recognitions, *rec)
	return nil
}

func (f *fakeStore) ListRecognitions(_ context.Context, _ int) ([]Recognition, error) {
	return f.recognitions, nil
}

const deltarPath = "ITW>Automotive OEM>Fasteners & Interior>North America>Deltar North America"

func reporterAccess(perms accesscontrol.PermissionSet) *accesscontrol.AccessControl {
	return &accesscontrol.AccessControl{
		Email:           "jordan@example.com",
		Scope:           accesscontrol.ScopeDivision,
		HierarchyString: deltarPath,
		Plant:           "Plant A",
		Permissions:     perms,
	}
}

func TestCreateReportStampsCallerHierarchy(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil)
	access := reporterAccess(accesscontrol.PermissionSet{CanReportInjuryIllness: true})

	report := &Report{Type: TypeInjuryIllness, Title: "Slip near press 4"}
	if err := svc.CreateReport(context.Background(), access, report); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	if report.ID == "" {
		t.Error("report ID not assigned")
	}
	if report.HierarchyString != deltarPath || report.Plant != "Plant A" {
		t.Errorf("report not stamped from caller: %+v", report)
	}
	if report.ReporterEmail != "jordan@example.com" {
		t.Errorf("reporter = %q", report.ReporterEmail)
	}
	if report.Status != StatusOpen {
		t.Errorf("status = %q", report.Status)
	}
}

func TestCreateReportPermissionGates(t *testing.T) {
	svc := NewService(&fakeStore{}, nil)

	tests := []struct {
		name   string
		perms  accesscontrol.PermissionSet
		rtype  ReportType
		wantOK bool
	}{
		{"injury allowed", accesscontrol.PermissionSet{CanReportInjuryIllness: true}, TypeInjuryIllness, true},
		{"injury denied", accesscontrol.PermissionSet{CanReportObservation: true}, TypeInjuryIllness, false},
		{"observation allowed", accesscontrol.PermissionSet{CanReportObservation: true}, TypeObservation, true},
		{"observation denied", accesscontrol.PermissionSet{}, TypeObservation, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateReport(context.Background(), reporterAccess(tt.perms),
				&Report{Type: tt.rtype, Title: "x"})
			if tt.wantOK && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantOK && !errors.Is(err, ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
		})
	}

	if err := svc.CreateReport(context.Background(), nil, &Report{Type: TypeObservation, Title: "x"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("nil access must be forbidden, got %v", err)
	}
	if err := svc.CreateReport(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{CanReportObservation: true}),
		&Report{Type: "bogus", Title: "x"}); err == nil || errors.Is(err, ErrForbidden) {
		t.Errorf("unknown type must be a validation error, got %v", err)
	}
}

func TestListReportsScoped(t *testing.T) {
	store := &fakeStore{reports: []Report{
		{ID: "in", Type: TypeObservation, Status: StatusOpen, HierarchyString: deltarPath + ">Plant A"},
		{ID: "out", Type: TypeObservation, Status: StatusOpen, HierarchyString: "ITW>Polymers & Fluids>Fluids"},
	}}
	svc := NewService(store, nil)
	access := reporterAccess(accesscontrol.PermissionSet{CanViewOpenClosedReports: true})

	list, err := svc.ListReports(context.Background(), access, "", "")
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "in" {
		t.Errorf("scoping leaked: %+v", list)
	}
}

func TestListReportsRedactsPII(t *testing.T) {
	store := &fakeStore{reports: []Report{
		{ID: "r", Type: TypeInjuryIllness, HierarchyString: deltarPath + ">Plant A",
			ReporterEmail: "victim@example.com", Description: "details", ContainsPII: true},
	}}
	svc := NewService(store, nil)

	list, err := svc.ListReports(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{CanViewOpenClosedReports: true}), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if list[0].ReporterEmail != "" || list[0].Description == "details" {
		t.Errorf("PII not redacted: %+v", list[0])
	}

	list, err = svc.ListReports(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{CanViewOpenClosedReports: true, CanViewPII: true}), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if list[0].ReporterEmail != "victim@example.com" {
		t.Errorf("PII wrongly redacted for authorized viewer: %+v", list[0])
	}
}

func TestGetReportOutOfScopeReadsAsNotFound(t *testing.T) {
	store := &fakeStore{reports: []Report{
		{ID: "far", Type: TypeObservation, HierarchyString: "ITW>Polymers & Fluids>Fluids"},
	}}
	svc := NewService(store, nil)

	report, err := svc.GetReport(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{CanViewOpenClosedReports: true}), "far")
	if err != nil {
		t.Fatal(err)
	}
	if report != nil {
		t.Errorf("out-of-scope report leaked: %+v", report)
	}
}

func TestCloseReport(t *testing.T) {
	store := &fakeStore{reports: []Report{
		{ID: "r", Type: TypeInjuryIllness, Status: StatusOpen, HierarchyString: deltarPath + ">Plant A"},
	}}
	svc := NewService(store, nil)

	err := svc.CloseReport(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{CanViewOpenClosedReports: true}), "r")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("closure without approval permission must be forbidden, got %v", err)
	}

	err = svc.CloseReport(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{CanPerformApprovalIncidentClosure: true}), "r")
	if err != nil {
		t.Fatalf("CloseReport failed: %v", err)
	}
	if store.statusByID["r"] != StatusClosed {
		t.Errorf("status = %q", store.statusByID["r"])
	}
}

func TestSubmitRecognition(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil)
	access := reporterAccess(accesscontrol.PermissionSet{CanSubmitSafetyRecognition: true})

	rec := &Recognition{RecipientEmail: "peer@example.com", Message: "great catch"}
	if err := svc.SubmitRecognition(context.Background(), access, rec); err != nil {
		t.Fatalf("SubmitRecognition failed: %v", err)
	}
	if rec.SubmitterEmail != "jordan@example.com" || rec.HierarchyString != deltarPath {
		t.Errorf("recognition not stamped: %+v", rec)
	}

	if err := svc.SubmitRecognition(context.Background(), access, &Recognition{}); err == nil {
		t.Error("missing recipient must be rejected")
	}
	if err := svc.SubmitRecognition(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{}), rec); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

type fakeObjectStore struct {
	objects map[string][]byte
}

func (f *fakeObjectStore) Upload(_ context.Context, reportID, filename, _ string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	key := "attachments/" + reportID + "/" + filename
	f.objects[key] = data
	return key, nil
}

func (f *fakeObjectStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("object missing")
	}
	return io.NopCloser(bytes.NewReader(data)), "text/plain", nil
}

func TestAddAttachmentRecordsKey(t *testing.T) {
	store := &fakeStore{reports: []Report{{
		ID:              "r1",
		ReporterEmail:   "jordan@example.com",
		HierarchyString: deltarPath,
	}}}
	svc := NewService(store, nil).WithAttachments(&fakeObjectStore{})

	key, err := svc.AddAttachment(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{}),
		"r1", "photo.jpg", "image/jpeg", strings.NewReader("jpegbytes"))
	if err != nil {
		t.Fatalf("AddAttachment failed: %v", err)
	}
	if key == "" {
		t.Fatal("expected object key")
	}
	if got := store.reports[0].AttachmentKeys; len(got) != 1 || got[0] != key {
		t.Errorf("attachment key not recorded on report: %v", got)
	}
}

func TestAddAttachmentScopeChecks(t *testing.T) {
	outOfScope := Report{
		ID:              "r2",
		ReporterEmail:   "someone.else@example.com",
		HierarchyString: "ITW>Polymers & Fluids>Fluids>North America>Pro Brands",
	}
	store := &fakeStore{reports: []Report{outOfScope}}
	svc := NewService(store, nil).WithAttachments(&fakeObjectStore{})

	// Not the reporter, out of scope: reads as not found.
	_, err := svc.AddAttachment(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{CanViewOpenClosedReports: true}),
		"r2", "a.txt", "text/plain", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got %v", err)
	}

	// No object store configured.
	bare := NewService(store, nil)
	_, err = bare.AddAttachment(context.Background(),
		reporterAccess(accesscontrol.PermissionSet{}),
		"r2", "a.txt", "text/plain", strings.NewReader("x"))
	if !errors.Is(err, ErrNoAttachmentStore) {
		t.Errorf("expected ErrNoAttachmentStore, got %v", err)
	}
}

func TestGetAttachmentRejectsUnknownKey(t *testing.T) {
	objects := &fakeObjectStore{}
	store := &fakeStore{reports: []Report{{
		ID:              "r1",
		ReporterEmail:   "jordan@example.com",
		HierarchyString: deltarPath,
	}}}
	svc := NewService(store, nil).WithAttachments(objects)
	access := reporterAccess(accesscontrol.PermissionSet{})

	key, err := svc.AddAttachment(context.Background(), access,
		"r1", "notes.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("AddAttachment failed: %v", err)
	}

	body, contentType, err := svc.GetAttachment(context.Background(), access, "r1", key)
	if err != nil {
		t.Fatalf("GetAttachment failed: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "hello" || contentType != "text/plain" {
		t.Errorf("got %q (%s)", data, contentType)
	}

	// A key not recorded on the report is rejected even if the object exists.
	objects.objects["attachments/other/steal.txt"] = []byte("secret")
	if _, _, err := svc.GetAttachment(context.Background(), access, "r1", "attachments/other/steal.txt"); err == nil {
		t.Error("expected error for key not on report")
	}
}

package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Store is the Postgres-backed report and recognition store.
type Store struct {
	db *sql.DB
}

// NewStore creates a report store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertReport persists a new report.
func (s *Store) InsertReport(ctx context.Context, report *Report) error {
	query := `
		INSERT INTO reports (id, report_type, title, description, status, reporter_email,
			hierarchy_string, plant, contains_pii, attachment_keys, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		report.ID,
		report.Type,
		report.Title,
		report.Description,
		report.Status,
		report.ReporterEmail,
		report.HierarchyString,
		report.Plant,
		report.ContainsPII,
		pq.Array(report.AttachmentKeys),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	report.CreatedAt = now
	report.UpdatedAt = now
	return nil
}

// GetReport retrieves a report by ID. Returns (nil, nil) when absent.
func (s *Store) GetReport(ctx context.Context, id string) (*Report, error) {
	query := `
		SELECT id, report_type, title, description, status, reporter_email,
			hierarchy_string, plant, contains_pii, attachment_keys, created_at, updated_at
		FROM reports WHERE id = $1
	`
	var report Report
	var keys pq.StringArray
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.Type,
		&report.Title,
		&report.Description,
		&report.Status,
		&report.ReporterEmail,
		&report.HierarchyString,
		&report.Plant,
		&report.ContainsPII,
		&keys,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	report.AttachmentKeys = keys
	return &report, nil
}

// ListReports returns reports, newest first, optionally filtered by type and
// status. Scope filtering happens in the service, not in SQL, so the filter
// semantics stay in one place.
func (s *Store) ListReports(ctx context.Context, reportType ReportType, status string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
		SELECT id, report_type, title, description, status, reporter_email,
			hierarchy_string, plant, contains_pii, attachment_keys, created_at, updated_at
		FROM reports
		WHERE ($1 = '' OR report_type = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, string(reportType), status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var report Report
		var keys pq.StringArray
		if err := rows.Scan(
			&report.ID,
			&report.Type,
			&report.Title,
			&report.Description,
			&report.Status,
			&report.ReporterEmail,
			&report.HierarchyString,
			&report.Plant,
			&report.ContainsPII,
			&keys,
			&report.CreatedAt,
			&report.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report.AttachmentKeys = keys
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// UpdateReportStatus transitions a report's status.
func (s *Store) UpdateReportStatus(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reports SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("report not found: %s", id)
	}
	return nil
}

// AppendAttachment records an uploaded attachment key on a report.
func (s *Store) AppendAttachment(ctx context.Context, id, key string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reports SET attachment_keys = array_append(attachment_keys, $2), updated_at = NOW() WHERE id = $1`,
		id, key)
	if err != nil {
		return fmt.Errorf("failed to append attachment: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("report not found: %s", id)
	}
	return nil
}

// InsertRecognition persists a recognition entry.
func (s *Store) InsertRecognition(ctx context.Context, rec *Recognition) error {
	query := `
		INSERT INTO recognitions (id, recipient_email, submitter_email, message, hierarchy_string, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.RecipientEmail, rec.SubmitterEmail, rec.Message, rec.HierarchyString, now)
	if err != nil {
		return fmt.Errorf("failed to insert recognition: %w", err)
	}
	rec.CreatedAt = now
	return nil
}

// ListRecognitions returns recognitions, newest first.
func (s *Store) ListRecognitions(ctx context.Context, limit int) ([]Recognition, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_email, submitter_email, message, hierarchy_string, created_at
		FROM recognitions ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recognitions: %w", err)
	}
	defer rows.Close()

	var recs []Recognition
	for rows.Next() {
		var rec Recognition
		if err := rows.Scan(&rec.ID, &rec.RecipientEmail, &rec.SubmitterEmail,
			&rec.Message, &rec.HierarchyString, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recognition: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

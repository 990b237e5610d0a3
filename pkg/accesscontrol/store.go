package accesscontrol

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/safetypulse/safetypulse/pkg/observability"
)

// Store is the Postgres-backed implementation of UserRoleStore and
// RolePermissionStore.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewStore creates a new access-control store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithMetrics attaches operation counters and latency histograms.
func (s *Store) WithMetrics(m *observability.Metrics) *Store {
	s.metrics = m
	return s
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	s.metrics.StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

const userRoleColumns = `email, name, role_title, enterprise, segment, platform, division, plant,
	hierarchy_string, level, cognito_groups, is_active, created_at, updated_at`

// GetUserRole retrieves a user role record by exact email key.
// Returns (nil, nil) when no row exists.
func (s *Store) GetUserRole(ctx context.Context, email string) (_ *UserRoleRecord, retErr error) {
	defer func(start time.Time) { s.observe("get_user_role", start, retErr) }(time.Now())
	query := `SELECT ` + userRoleColumns + ` FROM user_roles WHERE email = $1`

	record, err := scanUserRole(s.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}
	return record, nil
}

// ListUserRoles returns up to limit user role records, for the resolver's
// fallback scan.
func (s *Store) ListUserRoles(ctx context.Context, limit int) (_ []UserRoleRecord, retErr error) {
	defer func(start time.Time) { s.observe("list_user_roles", start, retErr) }(time.Now())
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	query := `SELECT ` + userRoleColumns + ` FROM user_roles ORDER BY email LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()

	var records []UserRoleRecord
	for rows.Next() {
		record, err := scanUserRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// UpsertUserRole creates or updates a user role record. Administrative path
// only; the resolvers never write.
func (s *Store) UpsertUserRole(ctx context.Context, record *UserRoleRecord) (retErr error) {
	defer func(start time.Time) { s.observe("upsert_user_role", start, retErr) }(time.Now())
	query := `
		INSERT INTO user_roles (email, name, role_title, enterprise, segment, platform, division, plant,
			hierarchy_string, level, cognito_groups, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			role_title = EXCLUDED.role_title,
			enterprise = EXCLUDED.enterprise,
			segment = EXCLUDED.segment,
			platform = EXCLUDED.platform,
			division = EXCLUDED.division,
			plant = EXCLUDED.plant,
			hierarchy_string = EXCLUDED.hierarchy_string,
			level = EXCLUDED.level,
			cognito_groups = EXCLUDED.cognito_groups,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		record.Email,
		record.Name,
		record.RoleTitle,
		record.Enterprise,
		record.Segment,
		record.Platform,
		record.Division,
		record.Plant,
		record.HierarchyString,
		record.Level,
		pq.Array(record.CognitoGroups),
		record.IsActive,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user role: %w", err)
	}
	record.UpdatedAt = now
	return nil
}

// DeactivateUserRole soft-deletes a user role record. Records are never hard
// deleted.
func (s *Store) DeactivateUserRole(ctx context.Context, email string) (retErr error) {
	defer func(start time.Time) { s.observe("deactivate_user_role", start, retErr) }(time.Now())
	result, err := s.db.ExecContext(ctx,
		`UPDATE user_roles SET is_active = FALSE, updated_at = NOW() WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to deactivate user role: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user role not found: %s", email)
	}
	return nil
}

// GetRolePermission retrieves the permission row for a role title.
// Returns (nil, nil) when no row exists; the permission resolver falls back
// to its rule table in that case.
func (s *Store) GetRolePermission(ctx context.Context, roleTitle string) (_ *RolePermissionRecord, retErr error) {
	defer func(start time.Time) { s.observe("get_role_permission", start, retErr) }(time.Now())
	query := `SELECT role_title, permissions, created_at, updated_at FROM role_permissions WHERE role_title = $1`

	var record RolePermissionRecord
	var permissionsJSON string
	err := s.db.QueryRowContext(ctx, query, roleTitle).Scan(
		&record.RoleTitle,
		&permissionsJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}

	// Missing flags in the stored payload decode to false.
	if err := json.Unmarshal([]byte(permissionsJSON), &record.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions for %q: %w", roleTitle, err)
	}
	return &record, nil
}

// UpsertRolePermission creates or updates a permission row. Administrative
// path only.
func (s *Store) UpsertRolePermission(ctx context.Context, record *RolePermissionRecord) (retErr error) {
	defer func(start time.Time) { s.observe("upsert_role_permission", start, retErr) }(time.Now())
	permissionsJSON, err := json.Marshal(record.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		INSERT INTO role_permissions (role_title, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (role_title) DO UPDATE SET
			permissions = EXCLUDED.permissions,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if _, err := s.db.ExecContext(ctx, query, record.RoleTitle, string(permissionsJSON), now); err != nil {
		return fmt.Errorf("failed to upsert role permissions: %w", err)
	}
	record.UpdatedAt = now
	return nil
}

// scanUserRole scans a user role row.
func scanUserRole(scanner interface {
	Scan(dest ...interface{}) error
}) (*UserRoleRecord, error) {
	var record UserRoleRecord
	var groups pq.StringArray

	err := scanner.Scan(
		&record.Email,
		&record.Name,
		&record.RoleTitle,
		&record.Enterprise,
		&record.Segment,
		&record.Platform,
		&record.Division,
		&record.Plant,
		&record.HierarchyString,
		&record.Level,
		&groups,
		&record.IsActive,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		if strings.TrimSpace(g) == "" {
			continue
		}
		record.CognitoGroups = append(record.CognitoGroups, g)
	}
	return &record, nil
}

package accesscontrol

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations contains all access-control schema migrations in order.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Create user_roles table",
		SQL: `
			CREATE TABLE IF NOT EXISTS user_roles (
				email VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				role_title VARCHAR(255) NOT NULL DEFAULT '',
				enterprise VARCHAR(255) NOT NULL DEFAULT '',
				segment VARCHAR(255) NOT NULL DEFAULT '',
				platform VARCHAR(255) NOT NULL DEFAULT '',
				division VARCHAR(255) NOT NULL DEFAULT '',
				plant VARCHAR(255) NOT NULL DEFAULT '',
				hierarchy_string TEXT NOT NULL DEFAULT '',
				level INTEGER NOT NULL DEFAULT 5,
				cognito_groups TEXT[] NOT NULL DEFAULT '{}',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_user_roles_role_title ON user_roles(role_title);
			CREATE INDEX IF NOT EXISTS idx_user_roles_is_active ON user_roles(is_active);
			CREATE INDEX IF NOT EXISTS idx_user_roles_hierarchy ON user_roles(hierarchy_string);
		`,
	},
	{
		Version:     2,
		Description: "Create role_permissions table",
		SQL: `
			CREATE TABLE IF NOT EXISTS role_permissions (
				role_title VARCHAR(255) PRIMARY KEY,
				permissions JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);
		`,
	},
	{
		Version:     3,
		Description: "Create reports and recognitions tables",
		SQL: `
			CREATE TABLE IF NOT EXISTS reports (
				id UUID PRIMARY KEY,
				report_type VARCHAR(64) NOT NULL,
				title VARCHAR(512) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(32) NOT NULL DEFAULT 'open',
				reporter_email VARCHAR(255) NOT NULL,
				hierarchy_string TEXT NOT NULL DEFAULT '',
				plant VARCHAR(255) NOT NULL DEFAULT '',
				contains_pii BOOLEAN NOT NULL DEFAULT FALSE,
				attachment_keys TEXT[] NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_reports_hierarchy ON reports(hierarchy_string);
			CREATE INDEX IF NOT EXISTS idx_reports_type_status ON reports(report_type, status);

			CREATE TABLE IF NOT EXISTS recognitions (
				id UUID PRIMARY KEY,
				recipient_email VARCHAR(255) NOT NULL,
				submitter_email VARCHAR(255) NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				hierarchy_string TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_recognitions_hierarchy ON recognitions(hierarchy_string);
		`,
	},
}

// RunMigrations applies all pending access-control migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range Migrations {
		if applied[migration.Version] {
			continue
		}
		if err := applyMigration(ctx, db, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w",
				migration.Version, migration.Description, err)
		}
	}
	return nil
}

func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS accesscontrol_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`
	_, err := db.ExecContext(ctx, query)
	return err
}

func getAppliedMigrations(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM accesscontrol_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accesscontrol_migrations (version, description) VALUES ($1, $2)`,
		migration.Version, migration.Description,
	); err != nil {
		return err
	}
	return tx.Commit()
}

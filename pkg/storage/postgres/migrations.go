package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alohawaii-travel/api/pkg/observability"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the full schema history in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL,
					display_name VARCHAR(255) NOT NULL DEFAULT '',
					avatar_url TEXT NOT NULL DEFAULT '',
					role VARCHAR(32) NOT NULL DEFAULT 'PENDING',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					domain VARCHAR(255) NOT NULL,
					last_login_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(email)
				);

				CREATE INDEX idx_users_domain ON users(domain);
				CREATE INDEX idx_users_role ON users(role);
			`,
		},
		{
			Version:     2,
			Description: "Create domain_whitelist table",
			SQL: `
				CREATE TABLE IF NOT EXISTS domain_whitelist (
					domain VARCHAR(255) PRIMARY KEY,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     3,
			Description: "Create tours table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tours (
					id UUID PRIMARY KEY,
					slug VARCHAR(255) NOT NULL,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					duration_minutes INT NOT NULL,
					price_cents BIGINT NOT NULL,
					currency CHAR(3) NOT NULL DEFAULT 'USD',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(slug)
				);

				CREATE INDEX idx_tours_active ON tours(active);
			`,
		},
		{
			Version:     4,
			Description: "Create auth_audit table",
			SQL: `
				CREATE TABLE IF NOT EXISTS auth_audit (
					id BIGSERIAL PRIMARY KEY,
					timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					event_type VARCHAR(64) NOT NULL,
					status VARCHAR(16) NOT NULL,
					actor_id UUID,
					actor_email VARCHAR(255),
					subject_id UUID,
					request_id VARCHAR(64),
					ip_address VARCHAR(64),
					message TEXT NOT NULL DEFAULT '',
					metadata JSONB
				);

				CREATE INDEX idx_auth_audit_timestamp ON auth_audit(timestamp);
				CREATE INDEX idx_auth_audit_event_type ON auth_audit(event_type);
				CREATE INDEX idx_auth_audit_actor_id ON auth_audit(actor_id);
			`,
		},
	}
}

// RunMigrations applies all pending migrations, each in its own transaction.
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("storage: create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return fmt.Errorf("storage: query migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("storage: scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("storage: iterate migrations: %w", err)
	}

	for _, migration := range Migrations() {
		if applied[migration.Version] {
			continue
		}
		if logger != nil {
			logger.WithFields(map[string]interface{}{
				"version":     migration.Version,
				"description": migration.Description,
			}).Info("applying migration")
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("storage: begin migration %d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("storage: execute migration %d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("storage: record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("storage: commit migration %d: %w", migration.Version, err)
		}
	}
	return nil
}

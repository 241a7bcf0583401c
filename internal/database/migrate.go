package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// getSchemaVersion reads the applied schema version. SQLite keeps it in
// PRAGMA user_version, Postgres in a one-row schema_version table.
func getSchemaVersion(conn *sql.DB, dialect Dialect) (int, error) {
	var version int
	if dialect == Postgres {
		if _, err := conn.Exec(
			"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)",
		); err != nil {
			return 0, fmt.Errorf("creating schema_version: %w", err)
		}
		err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
		if err != nil {
			return 0, fmt.Errorf("reading schema version: %w", err)
		}
		return version, nil
	}

	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(conn *sql.DB, dialect Dialect, version int) error {
	if dialect == Postgres {
		if _, err := conn.Exec("DELETE FROM schema_version"); err != nil {
			return err
		}
		_, err := conn.Exec("INSERT INTO schema_version (version) VALUES ($1)", version)
		return err
	}
	// Set user_version outside the transaction (modernc/sqlite requirement).
	// If we crash before this, the idempotent DDL lets the migration re-run.
	_, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}

// migrate brings the database schema up to the latest version.
func migrate(conn *sql.DB, dialect Dialect) error {
	current, err := getSchemaVersion(conn, dialect)
	if err != nil {
		return err
	}

	latest := latestVersion()
	if current >= latest {
		return nil
	}

	ctx := context.Background()
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		for _, stmt := range m.statements(dialect) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		if err := setSchemaVersion(conn, dialect, m.Version); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}

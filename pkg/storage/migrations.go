package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS owners (
		id            TEXT PRIMARY KEY,
		platform      TEXT NOT NULL,
		external_id   TEXT NOT NULL,
		notify_target TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(platform, external_id)
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id             TEXT PRIMARY KEY,
		owner_id       TEXT NOT NULL REFERENCES owners(id),
		notify_target  TEXT NOT NULL DEFAULT '',
		origin         TEXT NOT NULL CHECK(length(origin) = 3),
		destination    TEXT NOT NULL CHECK(length(destination) = 3),
		departure_date TEXT NOT NULL,
		target_price   REAL,
		last_price     REAL,
		active         INTEGER NOT NULL DEFAULT 1,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_owner ON alerts(owner_id, active);
	CREATE INDEX IF NOT EXISTS idx_alerts_sweep ON alerts(active, departure_date);

	CREATE TABLE IF NOT EXISTS price_observations (
		id          TEXT PRIMARY KEY,
		alert_id    TEXT NOT NULL REFERENCES alerts(id),
		price       REAL NOT NULL,
		observed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_observations_alert ON price_observations(alert_id, observed_at);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is portable between PostgreSQL and SQLite. JSON payloads are stored as text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_definitions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    project_type TEXT NOT NULL DEFAULT 'student',
    schedule_template TEXT NOT NULL DEFAULT '[]',
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS occurrences (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES schedule_definitions(id) ON DELETE CASCADE,
    title TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMP NULL,
    duration INTEGER NOT NULL DEFAULT 40,
    status TEXT NOT NULL DEFAULT 'scheduled',
    is_auto_generated BOOLEAN NOT NULL DEFAULT FALSE,
    is_makeup BOOLEAN NOT NULL DEFAULT FALSE,
    is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    is_modified BOOLEAN NOT NULL DEFAULT FALSE,
    slot_key INTEGER NULL,
    occurrence_date TEXT NULL,
    replaces_occurrence_id TEXT NULL,
    homework_assignments TEXT NOT NULL DEFAULT '[]',
    homework_checks TEXT NOT NULL DEFAULT '[]',
    checks_version INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS occurrences_generation_key ON occurrences (project_id, slot_key, occurrence_date)`,
	`CREATE INDEX IF NOT EXISTS occurrences_project_start ON occurrences (project_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS occurrences_start ON occurrences (start_time)`,
}

// Migrate creates the lesson tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

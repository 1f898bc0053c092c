package db

import (
	"database/sql"
	"log"
)

// schema is applied in order on startup. Statements are idempotent so the
// migration can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sequences (
		id            SERIAL PRIMARY KEY,
		workspace_id  INTEGER NOT NULL,
		name          TEXT NOT NULL,
		channel       TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'draft',
		delay_mode    TEXT NOT NULL DEFAULT 'cumulative',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS sequence_steps (
		id            SERIAL PRIMARY KEY,
		sequence_id   INTEGER NOT NULL REFERENCES sequences(id),
		step_order    INTEGER NOT NULL,
		delay_amount  INTEGER NOT NULL DEFAULT 0,
		delay_unit    TEXT NOT NULL DEFAULT 'hours',
		content       JSONB NOT NULL,
		UNIQUE (sequence_id, step_order)
	)`,
	`CREATE TABLE IF NOT EXISTS recipients (
		id            SERIAL PRIMARY KEY,
		workspace_id  INTEGER NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_messages (
		id                SERIAL PRIMARY KEY,
		workspace_id      INTEGER NOT NULL,
		sequence_id       INTEGER NOT NULL REFERENCES sequences(id),
		step_id           INTEGER NOT NULL REFERENCES sequence_steps(id),
		recipient_id      INTEGER NOT NULL REFERENCES recipients(id),
		channel           TEXT NOT NULL,
		rendered_content  TEXT NOT NULL DEFAULT '',
		scheduled_at      TIMESTAMPTZ NOT NULL,
		status            TEXT NOT NULL DEFAULT 'pending',
		sent_at           TIMESTAMPTZ,
		external_id       TEXT NOT NULL DEFAULT '',
		error_message     TEXT NOT NULL DEFAULT '',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// One live row per (sequence, step, recipient). Cancelled rows do not
	// count, so a recipient can be re-enrolled after cancellation.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_scheduled_messages_active
		ON scheduled_messages (sequence_id, step_id, recipient_id)
		WHERE status <> 'cancelled'`,
	// The processor's sweep query: due pending rows in scheduled order.
	`CREATE INDEX IF NOT EXISTS idx_scheduled_messages_due
		ON scheduled_messages (scheduled_at)
		WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_messages_workspace
		ON scheduled_messages (workspace_id, sequence_id)`,
}

// Migrate applies the schema to the given database.
func Migrate(database *sql.DB) error {
	for _, stmt := range schema {
		if _, err := database.Exec(stmt); err != nil {
			return err
		}
	}
	log.Println("✅ Schema migrations applied")
	return nil
}

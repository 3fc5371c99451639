package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the DDL for every table. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence      INTEGER NOT NULL UNIQUE,
		timestamp     INTEGER NOT NULL,
		run_id        TEXT    NOT NULL DEFAULT '',
		provider      TEXT    NOT NULL,
		model         TEXT    NOT NULL,
		purpose       TEXT    NOT NULL,
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		success       INTEGER NOT NULL,
		error_message TEXT    NOT NULL DEFAULT '',
		request_body  TEXT    NOT NULL DEFAULT '',
		response_body TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_request_events_purpose ON llm_request_events (purpose)`,
	`CREATE TABLE IF NOT EXISTS generation_runs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence       INTEGER NOT NULL UNIQUE,
		timestamp      INTEGER NOT NULL,
		run_id         TEXT    NOT NULL UNIQUE,
		document_id    TEXT    NOT NULL DEFAULT '',
		source         TEXT    NOT NULL DEFAULT '',
		question_type  TEXT    NOT NULL,
		providers      TEXT    NOT NULL DEFAULT '[]',
		chunk_count    INTEGER NOT NULL,
		record_count   INTEGER NOT NULL,
		cached_chunks  INTEGER NOT NULL DEFAULT 0,
		failed_chunks  TEXT    NOT NULL DEFAULT '[]',
		cancelled      INTEGER NOT NULL DEFAULT 0,
		duration_ms    INTEGER NOT NULL
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

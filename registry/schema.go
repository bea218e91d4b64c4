package main

import (
	"context"
	"database/sql"
	"fmt"
)

// Idempotent bootstrap so a fresh database serves requests without a
// separate migration step.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS artifacts (
		artifact_id           UUID PRIMARY KEY,
		name                  TEXT NOT NULL,
		category              TEXT NOT NULL,
		model_url             TEXT NOT NULL UNIQUE,
		dataset_url           TEXT NOT NULL DEFAULT '',
		code_url              TEXT NOT NULL DEFAULT '',
		dataset_inferred      BOOLEAN NOT NULL DEFAULT FALSE,
		dataset_already_seen  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at            TIMESTAMPTZ NOT NULL,
		created_by            TEXT NOT NULL,
		integrity_sha256      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		rating_id         UUID PRIMARY KEY,
		artifact_id       UUID NOT NULL REFERENCES artifacts(artifact_id),
		net_score         DOUBLE PRECISION NOT NULL,
		report            JSONB NOT NULL,
		report_object_key TEXT NOT NULL DEFAULT '',
		rated_at          TIMESTAMPTZ NOT NULL,
		rated_by          TEXT NOT NULL,
		integrity_sha256  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ratings_artifact_rated_at_idx
		ON ratings (artifact_id, rated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		event_id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		occurred_at       TIMESTAMPTZ NOT NULL,
		actor             TEXT NOT NULL,
		action            TEXT NOT NULL,
		resource_type     TEXT NOT NULL,
		resource_id       TEXT NOT NULL,
		request_id        TEXT,
		ip                INET,
		user_agent        TEXT,
		payload           JSONB NOT NULL,
		integrity_sha256  TEXT NOT NULL
	)`,
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

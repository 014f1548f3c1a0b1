package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables the api and worker binaries rely on. All
// statements are idempotent so both binaries can run it at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS sessions (
    id              UUID PRIMARY KEY,
    title           TEXT NOT NULL DEFAULT '',
    pipeline        TEXT NOT NULL DEFAULT '',
    summary         TEXT NOT NULL DEFAULT '',
    storyboard_json JSONB NOT NULL DEFAULT '[]'::jsonb,
    references_json JSONB NOT NULL DEFAULT '[]'::jsonb,
    timeline_json   JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
		`
CREATE TABLE IF NOT EXISTS render_jobs (
    id            TEXT PRIMARY KEY,
    session_id    UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    shot_index    INT NOT NULL,
    mode          TEXT NOT NULL,
    status        TEXT NOT NULL,
    result_uri    TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    superseded_by TEXT NOT NULL DEFAULT '',
    backup_key    TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
		`
CREATE INDEX IF NOT EXISTS render_jobs_active_idx
    ON render_jobs (session_id, shot_index)
    WHERE superseded_by = '';
`,
		`
CREATE TABLE IF NOT EXISTS integration_tokens (
    id         UUID PRIMARY KEY,
    provider   TEXT NOT NULL UNIQUE,
    token      TEXT NOT NULL,
    properties JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
		`
CREATE TABLE IF NOT EXISTS session_artifacts (
    id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    session_id        UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    uri               TEXT NOT NULL,
    source_order_json JSONB NOT NULL DEFAULT '[]'::jsonb,
    audio_mix_applied BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

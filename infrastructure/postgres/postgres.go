// Package postgres implements the engine's stores on PostgreSQL via pgx.
// Status transitions use conditional UPDATEs so the lesson state machine is
// enforced by the database rather than by read-then-write sequences.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects a pgx pool to the given DSN and verifies connectivity.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// schema is the DDL applied at startup. Statements are idempotent; proper
// migration tooling is out of scope and handled by the deployment.
const schema = `
CREATE TABLE IF NOT EXISTS disciplines (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS documents (
	id             UUID PRIMARY KEY,
	teacher_id     UUID NOT NULL,
	title          TEXT NOT NULL,
	extracted_text TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS programs (
	id            UUID PRIMARY KEY,
	teacher_id    UUID NOT NULL,
	discipline_id UUID NOT NULL REFERENCES disciplines(id),
	title         TEXT NOT NULL,
	class_name    TEXT NOT NULL DEFAULT '',
	raw_content   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'PENDING',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS modules (
	id          UUID PRIMARY KEY,
	program_id  UUID NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	position    INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS lessons (
	id             UUID PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	class_name     TEXT NOT NULL DEFAULT '',
	content_type   TEXT NOT NULL,
	status         TEXT NOT NULL,
	content        JSONB NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	ai_model_used  TEXT NOT NULL DEFAULT '',
	teacher_id     UUID NOT NULL,
	discipline_id  UUID NOT NULL REFERENCES disciplines(id),
	document_id    UUID NULL REFERENCES documents(id) ON DELETE SET NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS lessons_feed_idx ON lessons (teacher_id, status, updated_at DESC);

CREATE TABLE IF NOT EXISTS topics (
	id           UUID PRIMARY KEY,
	module_id    UUID NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'PENDING',
	lesson_id    UUID NULL REFERENCES lessons(id) ON DELETE SET NULL,
	position     INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS topics_lesson_idx ON topics (lesson_id);

CREATE TABLE IF NOT EXISTS ai_usage_log (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL,
	provider   TEXT NOT NULL,
	operation  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ai_usage_log_quota_idx ON ai_usage_log (user_id, provider, created_at);

CREATE TABLE IF NOT EXISTS ai_credentials (
	id         UUID PRIMARY KEY,
	scope      TEXT NOT NULL,
	user_id    UUID NULL,
	provider   TEXT NOT NULL,
	ciphertext BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT ai_credentials_scope_chk CHECK (
		(scope = 'personal' AND user_id IS NOT NULL) OR
		(scope = 'system' AND user_id IS NULL)
	)
);
CREATE UNIQUE INDEX IF NOT EXISTS ai_credentials_personal_idx
	ON ai_credentials (user_id) WHERE scope = 'personal';
CREATE UNIQUE INDEX IF NOT EXISTS ai_credentials_system_idx
	ON ai_credentials (scope) WHERE scope = 'system';
`

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL,
		target_url TEXT NOT NULL,
		total_clicks BIGINT NOT NULL DEFAULT 0,
		last_clicked TIMESTAMPTZ,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// Uniqueness holds among active links only; soft-deleted codes may be
	// reallocated depending on the configured reuse policy.
	`CREATE UNIQUE INDEX IF NOT EXISTS links_code_active_idx ON links (code) WHERE NOT deleted`,
	`CREATE INDEX IF NOT EXISTS links_created_at_idx ON links (created_at DESC)`,
}

// Migrate creates the schema if it does not exist. Statements are
// idempotent, so running at every boot is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

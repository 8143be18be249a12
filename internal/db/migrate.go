package db

import (
	"context"
	"fmt"
)

// migrations holds the idempotent DDL for the tables this subsystem owns.
// Hearing, case, client, lawyer, and user tables belong to the
// practice-management core and are not created here.
//
// scheduled_jobs is the durable trigger queue. The partial index covers the
// claim query: due, unclaimed pending rows ordered by fire time.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS scheduled_jobs (
		id           UUID PRIMARY KEY,
		kind         TEXT NOT NULL,
		hearing_id   UUID NOT NULL,
		user_id      UUID,
		fire_at      TIMESTAMPTZ NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		lease_owner  TEXT,
		leased_until TIMESTAMPTZ,
		attempts     INT NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_jobs_due
		ON scheduled_jobs (fire_at)
		WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_jobs_hearing
		ON scheduled_jobs (hearing_id)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL,
		type       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		link_url   TEXT NOT NULL DEFAULT '',
		case_id    UUID,
		hearing_id UUID,
		read_at    TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications (user_id, created_at DESC)`,
}

// Migrate applies the subsystem's DDL. Every statement is idempotent
// (IF NOT EXISTS), so running it on every startup is safe.
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration %d: %w", i, err)
		}
	}
	return nil
}

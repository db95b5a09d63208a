package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Constraint names are referenced by the repositories to tell which field
// collided.
const (
	HealthCardEmailKey      = "health_cards_email_key"
	HealthCardNationalIDKey = "health_cards_national_id_key"
	UserEmailKey            = "users_email_key"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS health_cards (
		id UUID PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		national_id TEXT NOT NULL,
		gender TEXT NOT NULL,
		contact_number TEXT NOT NULL,
		blood_type TEXT,
		photo_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT ` + HealthCardEmailKey + ` UNIQUE (email),
		CONSTRAINT ` + HealthCardNationalIDKey + ` UNIQUE (national_id)
	)`,
	`CREATE INDEX IF NOT EXISTS health_cards_created_at_idx ON health_cards (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT ` + UserEmailKey + ` UNIQUE (email),
		CONSTRAINT users_role_check CHECK (role IN ('admin', 'user'))
	)`,
}

// Migrate creates the tables used by the service if they do not exist yet.
// Every statement is idempotent so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

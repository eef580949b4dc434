package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Message rows carry soft references to users and listings: deleting a listing
// must leave its conversations readable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		event_type   TEXT NOT NULL,
		colors       TEXT NOT NULL DEFAULT '[]',
		images       TEXT NOT NULL DEFAULT '[]',
		latitude     REAL NOT NULL,
		longitude    REAL NOT NULL,
		address      TEXT NOT NULL DEFAULT '',
		creator_id   TEXT NOT NULL DEFAULT '',
		creator_name TEXT NOT NULL,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		sender_id   TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		listing_id  TEXT NOT NULL,
		content     TEXT NOT NULL,
		read        BOOLEAN NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_created ON listings(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(listing_id, sender_id, receiver_id)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(db *sql.DB) error {
	return migrateContext(context.Background(), db)
}

func migrateContext(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

package db

import "fmt"

// migrate creates the schema. Idempotent, runs on every Open.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		content      TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL,
		sync_status  TEXT NOT NULL DEFAULT 'PENDING',
		last_sync_at INTEGER NOT NULL DEFAULT 0,
		server_id    TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		text            TEXT NOT NULL,
		sender          TEXT NOT NULL,
		timestamp       INTEGER NOT NULL,
		sync_status     TEXT NOT NULL DEFAULT 'PENDING',
		conversation_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		id            TEXT PRIMARY KEY,
		filename      TEXT NOT NULL,
		original_name TEXT NOT NULL,
		mime_type     TEXT NOT NULL,
		size          INTEGER NOT NULL,
		local_path    TEXT NOT NULL,
		sync_status   TEXT NOT NULL DEFAULT 'PENDING',
		server_id     TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_queue (
		id          TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		operation   TEXT NOT NULL,
		data        TEXT NOT NULL,
		created_at  INTEGER NOT NULL,
		retries     INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_notes_sync_status ON notes(sync_status);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_sync_status ON messages(sync_status);
	CREATE INDEX IF NOT EXISTS idx_files_sync_status ON files(sync_status);
	CREATE INDEX IF NOT EXISTS idx_sync_queue_entity ON sync_queue(entity_type, entity_id);
	CREATE INDEX IF NOT EXISTS idx_sync_queue_created ON sync_queue(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		seq          BIGSERIAL UNIQUE,
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		sender_id    UUID NOT NULL,
		recipient_id UUID NOT NULL,
		body         TEXT NOT NULL,
		ticket_id    UUID,
		is_read      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_pair ON chat_messages (sender_id, recipient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_unread ON chat_messages (recipient_id, sender_id) WHERE NOT is_read;

	CREATE TABLE IF NOT EXISTS chat_audit_log (
		id            BIGSERIAL PRIMARY KEY,
		event_time    TIMESTAMPTZ NOT NULL,
		actor_user_id UUID,
		actor_role    TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		payload       JSONB NOT NULL DEFAULT '{}'
	);
`

// MigratePostgres создает таблицы чата, если их еще нет
func MigratePostgres(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply postgres schema: %w", err)
	}
	return nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		id           TEXT NOT NULL UNIQUE,
		sender_id    TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		body         TEXT NOT NULL,
		ticket_id    TEXT,
		is_read      INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_pair ON chat_messages (sender_id, recipient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_unread ON chat_messages (recipient_id, is_read);

	CREATE TABLE IF NOT EXISTS chat_audit_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		event_time    INTEGER NOT NULL,
		actor_user_id TEXT,
		actor_role    TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		payload       TEXT NOT NULL DEFAULT '{}'
	);
`

// OpenSQLite открывает встраиваемую базу (режим разработки и тесты) и создает схему
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	// WAL для конкурентного чтения во время записи
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return db, nil
}

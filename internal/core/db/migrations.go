package db

import (
	"database/sql"
	"fmt"
)

// runMigrations applies database migrations for existing databases
func (db *DB) runMigrations() error {
	// Migration 1: message_count on projects, for listing without a join
	if err := db.migration001AddMessageCount(); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	// Migration 2: chat_fts for databases created before chat search
	if err := db.migration002AddChatFTS(); err != nil {
		return fmt.Errorf("migration 002: %w", err)
	}

	return nil
}

// migration001AddMessageCount adds projects.message_count and backfills it
func (db *DB) migration001AddMessageCount() error {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('projects')
		WHERE name = 'message_count'
	`).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = db.conn.Exec(`
		ALTER TABLE projects ADD COLUMN message_count INTEGER NOT NULL DEFAULT 0;

		UPDATE projects SET message_count = (
			SELECT COUNT(*) FROM chat_messages WHERE chat_messages.project_id = projects.id
		);
	`)
	return err
}

// migration002AddChatFTS creates chat_fts and indexes existing messages
func (db *DB) migration002AddChatFTS() error {
	var triggerName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='trigger' AND name='chat_fts_insert'
	`).Scan(&triggerName)

	if err == sql.ErrNoRows {
		_, err = db.conn.Exec(`
			CREATE VIRTUAL TABLE IF NOT EXISTS chat_fts USING fts5(
				content,
				content=chat_messages,
				content_rowid=id,
				tokenize='porter unicode61'
			);

			CREATE TRIGGER chat_fts_insert AFTER INSERT ON chat_messages BEGIN
				INSERT INTO chat_fts(rowid, content) VALUES (new.id, new.content);
			END;

			CREATE TRIGGER IF NOT EXISTS chat_fts_delete AFTER DELETE ON chat_messages BEGIN
				INSERT INTO chat_fts(chat_fts, rowid, content) VALUES ('delete', old.id, old.content);
			END;

			INSERT INTO chat_fts(chat_fts) VALUES ('rebuild');
		`)
		return err
	}

	return err
}

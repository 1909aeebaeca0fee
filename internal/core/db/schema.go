package db

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT UNIQUE NOT NULL,
		state TEXT NOT NULL,
		user_prompt TEXT NOT NULL DEFAULT '',
		plan TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		file_count INTEGER NOT NULL DEFAULT 0,
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at DESC);

	CREATE TABLE IF NOT EXISTS project_files (
		project_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (project_id, name),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_project_files_position ON project_files(project_id, position);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		UNIQUE(project_id, sequence),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	-- Full-text search over the prompt and the plan
	CREATE VIRTUAL TABLE IF NOT EXISTS projects_fts USING fts5(
		user_prompt,
		plan,
		content=projects,
		content_rowid=id,
		tokenize='porter unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS projects_fts_insert AFTER INSERT ON projects BEGIN
		INSERT INTO projects_fts(rowid, user_prompt, plan)
		VALUES (new.id, new.user_prompt, new.plan);
	END;

	CREATE TRIGGER IF NOT EXISTS projects_fts_delete AFTER DELETE ON projects BEGIN
		INSERT INTO projects_fts(projects_fts, rowid, user_prompt, plan)
		VALUES ('delete', old.id, old.user_prompt, old.plan);
	END;

	CREATE TRIGGER IF NOT EXISTS projects_fts_update AFTER UPDATE OF user_prompt, plan ON projects BEGIN
		INSERT INTO projects_fts(projects_fts, rowid, user_prompt, plan)
		VALUES ('delete', old.id, old.user_prompt, old.plan);
		INSERT INTO projects_fts(rowid, user_prompt, plan)
		VALUES (new.id, new.user_prompt, new.plan);
	END;

	CREATE VIRTUAL TABLE IF NOT EXISTS chat_fts USING fts5(
		content,
		content=chat_messages,
		content_rowid=id,
		tokenize='porter unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS chat_fts_insert AFTER INSERT ON chat_messages BEGIN
		INSERT INTO chat_fts(rowid, content) VALUES (new.id, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS chat_fts_delete AFTER DELETE ON chat_messages BEGIN
		INSERT INTO chat_fts(chat_fts, rowid, content) VALUES ('delete', old.id, old.content);
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neilberkman/appforge/internal/core/models"
)

var (
	ErrNotFound  = errors.New("project not found")
	ErrAmbiguous = errors.New("project id prefix matches more than one project")
)

// Project is one row of the history list
type Project struct {
	ID           int64
	SessionID    string
	State        models.State
	UserPrompt   string
	LastError    string
	FileCount    int
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Title is the first line of the prompt, cut to maxLen
func (p Project) Title(maxLen int) string {
	return models.Session{UserPrompt: p.UserPrompt}.Title(maxLen)
}

// ListOptions filters ListProjects
type ListOptions struct {
	Since time.Time // zero means no lower bound on updated_at
	Limit int       // <= 0 means 100
}

// SaveSession upserts a session snapshot. Files and chat are replaced as a
// whole. Sessions without a prompt are not worth keeping and are skipped.
func (db *DB) SaveSession(ctx context.Context, s models.Session) error {
	if s.UserPrompt == "" {
		return nil
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("refusing to save session %s: %w", s.ID, err)
	}

	created, updated := s.CreatedAt, s.UpdatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if updated.IsZero() {
		updated = created
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var projectID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO projects
		(session_id, state, user_prompt, plan, last_error, file_count, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			user_prompt = excluded.user_prompt,
			plan = excluded.plan,
			last_error = excluded.last_error,
			file_count = excluded.file_count,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at
		RETURNING id
	`, s.ID, s.State.String(), s.UserPrompt, s.Plan, s.LastError,
		s.Files.Len(), len(s.ChatHistory), formatTime(created), formatTime(updated)).Scan(&projectID)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_files WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear files: %w", err)
	}
	for i, name := range s.Files.Names() {
		content, _ := s.Files.Get(name)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO project_files (project_id, position, name, content)
			VALUES (?, ?, ?, ?)
		`, projectID, i, name, content)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	for i, msg := range s.ChatHistory {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (project_id, sequence, role, content)
			VALUES (?, ?, ?, ?)
		`, projectID, i, string(msg.Role), msg.Content)
		if err != nil {
			return fmt.Errorf("insert chat message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ResolveID expands a session id prefix to the full id
func (db *DB) ResolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrNotFound
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT session_id FROM projects
		WHERE session_id = ? OR session_id LIKE ? ESCAPE '\'
		ORDER BY session_id = ? DESC
		LIMIT 2
	`, prefix, escapeLike(prefix)+"%", prefix)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case len(ids) == 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case ids[0] == prefix || len(ids) == 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

// GetSession loads a full session by id or unique id prefix
func (db *DB) GetSession(ctx context.Context, idOrPrefix string) (models.Session, error) {
	id, err := db.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return models.Session{}, err
	}

	var (
		projectID        int64
		state            string
		created, updated string
	)
	s := models.Session{ID: id, Files: models.NewFileMap()}
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, state, user_prompt, plan, last_error, created_at, updated_at
		FROM projects WHERE session_id = ?
	`, id).Scan(&projectID, &state, &s.UserPrompt, &s.Plan, &s.LastError, &created, &updated)
	if err == sql.ErrNoRows {
		return models.Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Session{}, err
	}

	if s.State, err = models.ParseState(state); err != nil {
		return models.Session{}, fmt.Errorf("project %s: %w", id, err)
	}
	s.CreatedAt = parseTime(created)
	s.UpdatedAt = parseTime(updated)

	fileRows, err := db.conn.QueryContext(ctx, `
		SELECT name, content FROM project_files
		WHERE project_id = ? ORDER BY position
	`, projectID)
	if err != nil {
		return models.Session{}, err
	}
	defer func() { _ = fileRows.Close() }()
	for fileRows.Next() {
		var name, content string
		if err := fileRows.Scan(&name, &content); err != nil {
			return models.Session{}, err
		}
		s.Files.Set(name, content)
	}
	if err := fileRows.Err(); err != nil {
		return models.Session{}, err
	}

	chatRows, err := db.conn.QueryContext(ctx, `
		SELECT role, content FROM chat_messages
		WHERE project_id = ? ORDER BY sequence
	`, projectID)
	if err != nil {
		return models.Session{}, err
	}
	defer func() { _ = chatRows.Close() }()
	for chatRows.Next() {
		var msg models.ChatMessage
		var role string
		if err := chatRows.Scan(&role, &msg.Content); err != nil {
			return models.Session{}, err
		}
		msg.Role = models.Role(role)
		s.ChatHistory = append(s.ChatHistory, msg)
	}
	if err := chatRows.Err(); err != nil {
		return models.Session{}, err
	}

	return s, nil
}

// ListProjects returns projects, most recently updated first
func (db *DB) ListProjects(ctx context.Context, opts ListOptions) ([]Project, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	since := ""
	if !opts.Since.IsZero() {
		since = formatTime(opts.Since)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session_id, state, user_prompt, last_error, file_count, message_count, created_at, updated_at
		FROM projects
		WHERE updated_at >= ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var projects []Project
	for rows.Next() {
		var p Project
		var state, created, updated string
		if err := rows.Scan(&p.ID, &p.SessionID, &state, &p.UserPrompt, &p.LastError,
			&p.FileCount, &p.MessageCount, &created, &updated); err != nil {
			return nil, err
		}
		// unknown states from a newer binary still list; they just show as prompt
		p.State, _ = models.ParseState(state)
		p.CreatedAt = parseTime(created)
		p.UpdatedAt = parseTime(updated)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project with its files and chat
func (db *DB) DeleteProject(ctx context.Context, idOrPrefix string) error {
	id, err := db.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `DELETE FROM projects WHERE session_id = ?`, id)
	return err
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

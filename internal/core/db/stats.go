package db

import (
	"database/sql"
	"time"
)

// Stats represents database statistics
type Stats struct {
	TotalProjects     int
	TotalFiles        int
	TotalMessages     int
	TotalBytes        int64
	OldestProject     time.Time
	NewestProject     time.Time
	ProjectsByState   map[string]int
	LargestProject    string
	LargestProjectLen int64
}

// GetStats returns comprehensive database statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{ProjectsByState: map[string]int{}}

	err := db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&stats.TotalProjects)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(content)), 0) FROM project_files").
		Scan(&stats.TotalFiles, &stats.TotalBytes)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*) FROM chat_messages").Scan(&stats.TotalMessages)
	if err != nil {
		return nil, err
	}

	if stats.TotalProjects == 0 {
		return stats, nil
	}

	var minCreated, maxUpdated sql.NullString
	err = db.QueryRow("SELECT MIN(created_at), MAX(updated_at) FROM projects").Scan(&minCreated, &maxUpdated)
	if err != nil {
		return nil, err
	}
	if minCreated.Valid {
		stats.OldestProject = parseTime(minCreated.String)
	}
	if maxUpdated.Valid {
		stats.NewestProject = parseTime(maxUpdated.String)
	}

	rows, err := db.Query("SELECT state, COUNT(*) FROM projects GROUP BY state")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		stats.ProjectsByState[state] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var largest sql.NullString
	err = db.QueryRow(`
		SELECT p.session_id, SUM(LENGTH(f.content)) AS size
		FROM projects p
		JOIN project_files f ON f.project_id = p.id
		GROUP BY p.id
		ORDER BY size DESC
		LIMIT 1
	`).Scan(&largest, &stats.LargestProjectLen)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if largest.Valid {
		stats.LargestProject = largest.String
	}

	return stats, nil
}

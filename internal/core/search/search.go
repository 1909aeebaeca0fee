package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/neilberkman/appforge/internal/core/db"
)

// Where a hit came from
const (
	FieldPrompt = "prompt"
	FieldPlan   = "plan"
	FieldChat   = "chat"
	FieldID     = "id"
)

// Method records which tier produced a result
const (
	MethodExact  = "exact"
	MethodFTS    = "fts5"
	MethodLike   = "like"
	MethodFuzzy  = "fuzzy"
	MethodFilter = "filter"
)

// Result is a single search hit
type Result struct {
	SessionID string
	Prompt    string
	State     string
	Field     string
	Snippet   string
	UpdatedAt time.Time
	Method    string
}

// DefaultLimit caps results when the caller passes 0
const DefaultLimit = 1000

// Search runs tiered search over saved projects: an id prefix match, then
// FTS5 over prompt, plan and chat, then a fuzzy match over prompts when
// nothing else hit. Results are ordered most recent first within a tier.
// Filter tokens (state:, date:, after:, before:) are applied to every tier.
func Search(ctx context.Context, database *db.DB, query string, limit int) ([]Result, error) {
	filters := ParseQuery(query)
	if filters.Query == "" && filters.Empty() {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	results, err := tiers(ctx, database, filters, limit)
	if err != nil {
		return nil, err
	}
	if filters.Empty() {
		return results, nil
	}

	kept := results[:0]
	for _, r := range results {
		if filters.Match(r.State, r.UpdatedAt) {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func tiers(ctx context.Context, database *db.DB, filters Filters, limit int) ([]Result, error) {
	query := filters.Query
	if query == "" {
		return filtered(ctx, database, filters, limit)
	}

	if !strings.ContainsAny(query, " \t") {
		if r, ok := exactID(ctx, database, query); ok {
			return []Result{r}, nil
		}
	}

	results, err := text(ctx, database, query, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	return fuzzyPrompts(ctx, database, query, limit)
}

// filtered lists projects when the query holds only filters
func filtered(ctx context.Context, database *db.DB, filters Filters, limit int) ([]Result, error) {
	opts := db.ListOptions{Limit: limit}
	if filters.HasAfter {
		opts.Since = filters.AfterDate
	}
	projects, err := database.ListProjects(ctx, opts)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(projects))
	for _, p := range projects {
		results = append(results, fromProject(p, MethodFilter))
	}
	return results, nil
}

func fromProject(p db.Project, method string) Result {
	return Result{
		SessionID: p.SessionID,
		Prompt:    p.UserPrompt,
		State:     p.State.String(),
		Field:     FieldPrompt,
		Snippet:   p.Title(80),
		UpdatedAt: p.UpdatedAt,
		Method:    method,
	}
}

func exactID(ctx context.Context, database *db.DB, query string) (Result, bool) {
	id, err := database.ResolveID(ctx, query)
	if err != nil {
		return Result{}, false
	}
	s, err := database.GetSession(ctx, id)
	if err != nil {
		return Result{}, false
	}
	return Result{
		SessionID: s.ID,
		Prompt:    s.UserPrompt,
		State:     s.State.String(),
		Field:     FieldID,
		Snippet:   s.Title(80),
		UpdatedAt: s.UpdatedAt,
		Method:    MethodExact,
	}, true
}

// text uses LIKE for queries with characters FTS5 tokenizes away, FTS5
// otherwise. A query FTS5 cannot parse falls back to LIKE.
func text(ctx context.Context, database *db.DB, query string, limit int) ([]Result, error) {
	if strings.ContainsAny(query, "-_@#$%&") {
		return like(ctx, database, query, limit)
	}
	results, err := fts(ctx, database, query, limit)
	if err != nil {
		var likeErr error
		results, likeErr = like(ctx, database, query, limit)
		if likeErr != nil {
			return nil, errors.Join(err, likeErr)
		}
	}
	return results, nil
}

func fts(ctx context.Context, database *db.DB, query string, limit int) ([]Result, error) {
	projectRows, err := database.QueryContext(ctx, `
		SELECT
			p.session_id,
			p.user_prompt,
			p.state,
			CASE WHEN instr(highlight(projects_fts, 0, char(1), char(2)), char(1)) > 0
				THEN 'prompt' ELSE 'plan' END,
			snippet(projects_fts, -1, '', '', '...', 64),
			p.updated_at
		FROM projects_fts
		JOIN projects p ON projects_fts.rowid = p.id
		WHERE projects_fts MATCH ?
		ORDER BY p.updated_at DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	results, err := scan(projectRows, MethodFTS)
	if err != nil {
		return nil, err
	}

	chatRows, err := database.QueryContext(ctx, `
		SELECT
			p.session_id,
			p.user_prompt,
			p.state,
			'chat',
			snippet(chat_fts, 0, '', '', '...', 64),
			p.updated_at
		FROM chat_fts
		JOIN chat_messages m ON chat_fts.rowid = m.id
		JOIN projects p ON p.id = m.project_id
		WHERE chat_fts MATCH ?
		ORDER BY p.updated_at DESC, m.sequence DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	chat, err := scan(chatRows, MethodFTS)
	if err != nil {
		return nil, err
	}

	return merge(results, chat, limit), nil
}

func like(ctx context.Context, database *db.DB, query string, limit int) ([]Result, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT session_id, user_prompt, state, field, text, updated_at FROM (
			SELECT p.session_id, p.user_prompt, p.state, 'prompt' AS field, p.user_prompt AS text, p.updated_at, 0 AS seq
			FROM projects p WHERE p.user_prompt LIKE '%' || ? || '%'
			UNION ALL
			SELECT p.session_id, p.user_prompt, p.state, 'plan', p.plan, p.updated_at, 0
			FROM projects p WHERE p.plan LIKE '%' || ? || '%'
			UNION ALL
			SELECT p.session_id, p.user_prompt, p.state, 'chat', m.content, p.updated_at, m.sequence
			FROM chat_messages m JOIN projects p ON p.id = m.project_id
			WHERE m.content LIKE '%' || ? || '%'
		)
		ORDER BY updated_at DESC, seq DESC
		LIMIT ?
	`, query, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	results, err := scan(rows, MethodLike)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Snippet = excerpt(results[i].Snippet, query, 64)
	}
	return results, nil
}

// fuzzyPrompts ranks recent prompts by fuzzy match score
func fuzzyPrompts(ctx context.Context, database *db.DB, query string, limit int) ([]Result, error) {
	projects, err := database.ListProjects(ctx, db.ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	prompts := make([]string, len(projects))
	for i, p := range projects {
		prompts[i] = p.UserPrompt
	}

	var results []Result
	for _, m := range fuzzy.Find(query, prompts) {
		results = append(results, fromProject(projects[m.Index], MethodFuzzy))
	}
	return results, nil
}

func scan(rows *sql.Rows, method string) ([]Result, error) {
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Result
		var updated string
		if err := rows.Scan(&r.SessionID, &r.Prompt, &r.State, &r.Field, &r.Snippet, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.UpdatedAt = parseUpdated(updated)
		r.Method = method
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

func merge(a, b []Result, limit int) []Result {
	out := append(a, b...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func parseUpdated(s string) time.Time {
	for _, format := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// excerpt returns up to width bytes around the first case-insensitive match
func excerpt(text, query string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= width {
		return text
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		return text[:width] + "..."
	}
	start := idx - (width-len(query))/2
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(text) {
		end = len(text)
		start = max(0, end-width)
	}
	out := text[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

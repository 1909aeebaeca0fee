package search

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/neilberkman/appforge/internal/core/models"
)

// Filters represents parsed filters from a search query
type Filters struct {
	Query      string    // The actual search text
	State      string    // Filter by session state name
	AfterDate  time.Time // Only projects updated after this date
	BeforeDate time.Time // Only projects updated before this date
	HasAfter   bool
	HasBefore  bool
}

// Empty reports whether no filter was given
func (f Filters) Empty() bool {
	return f.State == "" && !f.HasAfter && !f.HasBefore
}

// Match reports whether a result passes the filters
func (f Filters) Match(state string, updated time.Time) bool {
	if f.State != "" && state != "" && !strings.EqualFold(f.State, state) {
		return false
	}
	if f.HasAfter && updated.Before(f.AfterDate) {
		return false
	}
	if f.HasBefore && !updated.Before(f.BeforeDate) {
		return false
	}
	return true
}

// ParseQuery extracts filters from a search query string
// Supports:
//   - state:<name> - filter by session state (chat, preview, plan_review...)
//   - date:yesterday, date:last-week, date:2024-11-01 - filter by date
//   - after:yesterday, before:2024-11-01 - explicit date ranges
func ParseQuery(query string) Filters {
	filters := Filters{}
	now := time.Now()

	var queryParts []string
	for _, token := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(token, "state:"):
			name := strings.TrimPrefix(token, "state:")
			if _, err := models.ParseState(name); err == nil {
				filters.State = name
			}
		case strings.HasPrefix(token, "date:"), strings.HasPrefix(token, "after:"):
			dateStr := token[strings.Index(token, ":")+1:]
			// "date:" means after this date
			if parsed, ok := ParseDate(dateStr, now); ok {
				filters.AfterDate = parsed
				filters.HasAfter = true
			}
		case strings.HasPrefix(token, "before:"):
			if parsed, ok := ParseDate(strings.TrimPrefix(token, "before:"), now); ok {
				filters.BeforeDate = parsed
				filters.HasBefore = true
			}
		default:
			queryParts = append(queryParts, token)
		}
	}

	filters.Query = strings.Join(queryParts, " ")
	return filters
}

// ParseDate parses a fixed date format or natural language ("yesterday",
// "last-week", "3 days ago") relative to now
func ParseDate(dateStr string, now time.Time) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/2006",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, dateStr, now.Location()); err == nil {
			return t, true
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	// filter tokens can't hold spaces, so "last-week" stands for "last week"
	phrase := strings.ReplaceAll(dateStr, "-", " ")
	if result, err := w.Parse(phrase, now); err == nil && result != nil {
		return result.Time, true
	}

	return time.Time{}, false
}

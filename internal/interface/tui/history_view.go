package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/appforge/internal/core/db"
)

type projectListItem struct {
	project db.Project
}

func (i projectListItem) FilterValue() string {
	return i.project.UserPrompt
}

func (i projectListItem) Title() string {
	if title := i.project.Title(70); title != "" {
		return title
	}
	return shortID(i.project.SessionID) + "..."
}

func (i projectListItem) Description() string {
	return fmt.Sprintf("%s | %s | %d files | %d messages | Updated: %s",
		shortID(i.project.SessionID), i.project.State, i.project.FileCount,
		i.project.MessageCount, humanize.Time(i.project.UpdatedAt))
}

type projectDelegate struct {
	list.DefaultDelegate
}

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title, desc := p.Title(), p.Description()
	if index == m.Index() {
		title = selectedItemStyle.Render("> " + title)
		desc = selectedItemStyle.Faint(true).Render("  " + desc)
	} else {
		title = itemStyle.Render(title)
		desc = itemStyle.Render(metaStyle.Render(desc))
	}
	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createHistoryList(projects []db.Project, width, height int) list.Model {
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = projectListItem{project: p}
	}

	delegate := projectDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, height-3)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func (m Model) openHistory() (tea.Model, tea.Cmd) {
	switch {
	case m.db == nil:
		m.status = "History is not available"
		return m, nil
	case m.waiting():
		m.status = "Wait for the current generation to finish"
		return m, nil
	}
	return m, loadProjects(m.db)
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.history.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "enter":
			if selected, ok := m.history.SelectedItem().(projectListItem); ok {
				return m, loadSession(m.db, selected.project.SessionID)
			}
			return m, nil
		case "esc", "q":
			if m.history.FilterState() == list.FilterApplied {
				m.history.ResetFilter()
				return m, nil
			}
			m.mode = workflowView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

func (m Model) viewHistory() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Project History"))
	b.WriteString("\n\n")
	if len(m.history.Items()) == 0 {
		b.WriteString(metaStyle.Render("No saved projects yet"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.history.View())
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter resume • / filter • esc back • ctrl+c quit"))
	return b.String()
}

package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/appforge/internal/core/archive"
)

const structureTab = "Structure"

// copiedFor is how long the "Copied!" badge stays up
const copiedFor = 2 * time.Second

func (m Model) updateCode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl
	switch msg.String() {
	case "tab", "right", "l":
		m.selectTab(m.activeTab + 1)
		return m, nil
	case "shift+tab", "left", "h":
		m.selectTab(m.activeTab - 1)
		return m, nil
	case "c":
		return m.copyActiveTab()
	case "a", "enter":
		if err := ctrl.ApproveCode(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		return m, m.sync()
	case "r":
		return m, m.startStep(ctrl.RegenerateCode)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) viewCode() string {
	var b strings.Builder

	tabs := m.tabNames()
	rendered := make([]string, len(tabs))
	for i, name := range tabs {
		if i == m.activeTab {
			rendered[i] = activeTabStyle.Render(name)
		} else {
			rendered[i] = tabStyle.Render(name)
		}
	}
	b.WriteString(strings.Join(rendered, " "))
	if m.copied {
		b.WriteString("  " + copiedStyle.Render("Copied!"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%d files | %s",
		m.session.Files.Len(), humanize.Bytes(uint64(m.session.Files.TotalBytes())))))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab/←/→ switch file • c copy • a/enter approve • r regenerate • n start over • ? help • q quit"))
	return b.String()
}

// tabNames is the structure tab followed by one tab per file in display order
func (m Model) tabNames() []string {
	return append([]string{structureTab}, m.session.Files.Names()...)
}

func (m *Model) selectTab(i int) {
	n := len(m.tabNames())
	m.activeTab = (i%n + n) % n
	m.viewport.SetContent(m.tabContent(m.activeTab))
	m.viewport.GotoTop()
}

func (m Model) tabContent(i int) string {
	names := m.tabNames()
	if i <= 0 || i >= len(names) {
		a, err := archive.Build(m.session.Files, archive.Options{ProjectName: m.projectName})
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return a.Tree()
	}
	content, _ := m.session.Files.Get(names[i])
	return content
}

// copyActiveTab puts the active file on the clipboard and schedules the
// badge to clear. A newer copy resets the timer.
func (m Model) copyActiveTab() (tea.Model, tea.Cmd) {
	if err := m.copyFn(m.tabContent(m.activeTab)); err != nil {
		m.err = fmt.Errorf("failed to copy to clipboard: %w", err)
		return m, nil
	}
	m.copied = true
	m.copyToken++
	token := m.copyToken
	return m, tea.Tick(copiedFor, func(time.Time) tea.Msg {
		return clearCopiedMsg{token: token}
	})
}

package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updatePlan(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl
	switch msg.String() {
	case "a", "enter":
		return m, m.startStep(ctrl.ApprovePlan)
	case "r":
		return m, m.startStep(ctrl.RegeneratePlan)
	case "g":
		m.viewport.GotoTop()
		return m, nil
	case "G":
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) viewPlan() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Implementation Plan"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("a/enter approve & generate code • r regenerate • n start over • j/k scroll • ? help • q quit"))
	return b.String()
}

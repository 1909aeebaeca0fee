package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			m.status = "Describe your app first"
			return m, nil
		}
		ctrl := m.ctrl
		return m, m.startStep(func(ctx context.Context) error {
			return ctrl.SubmitPrompt(ctx, text)
		})
	case "esc":
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) viewPrompt() string {
	var b strings.Builder
	b.WriteString("What would you like to build?\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter generate plan • ctrl+j newline • ctrl+o history • f1 help • ctrl+c quit"))
	return b.String()
}

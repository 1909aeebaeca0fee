package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/appforge/internal/core/models"
)

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		ctrl := m.ctrl
		return m, m.startStep(func(ctx context.Context) error {
			return ctrl.SendMessage(ctx, text)
		})
	case "esc":
		if err := m.ctrl.BackToPreview(); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.sync()
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) viewChat() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Improve your app"))
	if m.previewURL != "" {
		b.WriteString("  " + urlStyle.Render(m.previewURL))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.waiting() {
		b.WriteString(m.spinner.View() + " Updating your app...\n\n")
		b.WriteString(helpStyle.Render("esc start over • ctrl+c quit"))
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send • ctrl+j newline • ↑/↓ scroll • esc back to preview • ctrl+c quit"))
	return b.String()
}

// transcript renders the chat history wrapped to the window
func (m Model) transcript() string {
	var b strings.Builder
	for _, msg := range m.session.ChatHistory {
		if msg.Role == models.RoleUser {
			b.WriteString(userStyle.Render("You"))
		} else {
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n")
		b.WriteString(wordwrap.String(msg.Content, m.wrapWidth()))
		b.WriteString("\n\n")
	}
	return b.String()
}

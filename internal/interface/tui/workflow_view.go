package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/appforge/internal/core/models"
)

var steps = []struct {
	label  string
	states []models.State
}{
	{"Describe", []models.State{models.StatePrompt, models.StateGeneratingPlan}},
	{"Plan", []models.State{models.StatePlanReview, models.StateGeneratingCode}},
	{"Code", []models.State{models.StateCodeReview}},
	{"Preview", []models.State{models.StatePreview}},
	{"Chat", []models.State{models.StateChat}},
}

func (m Model) updateWorkflow(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.waiting() || m.session.State.Busy() {
		switch msg.String() {
		case "esc":
			return m, m.startOver()
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if !m.inputFocused() {
		switch msg.String() {
		case "?":
			m.mode = helpView
			return m, nil
		case "q":
			return m, tea.Quit
		case "n":
			return m, m.startOver()
		}
	}

	switch m.session.State {
	case models.StatePrompt:
		return m.updatePrompt(msg)
	case models.StatePlanReview:
		return m.updatePlan(msg)
	case models.StateCodeReview:
		return m.updateCode(msg)
	case models.StatePreview:
		return m.updatePreview(msg)
	case models.StateChat:
		return m.updateChat(msg)
	}
	return m, nil
}

func (m Model) viewWorkflow() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch m.session.State {
	case models.StatePrompt:
		if m.waiting() {
			b.WriteString(m.viewGenerating("Generating implementation plan..."))
		} else {
			b.WriteString(m.viewPrompt())
		}
	case models.StateGeneratingPlan:
		b.WriteString(m.viewGenerating("Generating implementation plan..."))
	case models.StatePlanReview:
		if m.waiting() {
			b.WriteString(m.viewGenerating("Working on it..."))
		} else {
			b.WriteString(m.viewPlan())
		}
	case models.StateGeneratingCode:
		b.WriteString(m.viewGenerating("Generating code..."))
	case models.StateCodeReview:
		if m.waiting() {
			b.WriteString(m.viewGenerating("Generating code..."))
		} else {
			b.WriteString(m.viewCode())
		}
	case models.StatePreview:
		b.WriteString(m.viewPreview())
	case models.StateChat:
		b.WriteString(m.viewChat())
	}

	b.WriteString(m.footer())
	return b.String()
}

// header shows the title and where the session is in the workflow
func (m Model) header() string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		style := stepStyle
		for _, st := range s.states {
			if st == m.session.State {
				style = currentStepStyle
			}
		}
		parts[i] = style.Render(s.label)
	}
	return titleStyle.Render("appforge") + "  " + strings.Join(parts, stepStyle.Render(" › "))
}

// footer renders the status line and the last error
func (m Model) footer() string {
	var b strings.Builder
	if m.status != "" {
		b.WriteString("\n" + metaStyle.Render(m.status))
	}
	if m.session.LastError != "" && m.session.State != models.StateChat {
		b.WriteString("\n" + errorStyle.Render(m.session.LastError))
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()))
	}
	return b.String()
}

func (m Model) viewGenerating(label string) string {
	return fmt.Sprintf("%s %s\n\n%s\n", m.spinner.View(), label,
		helpStyle.Render("esc start over • ctrl+c quit"))
}

// refreshContent rebuilds the scrollable content for the current state
func (m *Model) refreshContent() {
	switch m.session.State {
	case models.StatePlanReview:
		m.viewport.SetContent(wordwrap.String(m.session.Plan, m.wrapWidth()))
	case models.StateCodeReview:
		m.viewport.SetContent(m.tabContent(m.activeTab))
	case models.StateChat:
		m.viewport.SetContent(m.transcript())
		m.viewport.GotoBottom()
	}
}

func (m Model) wrapWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

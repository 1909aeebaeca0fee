package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.mode = workflowView
		return m, nil
	}

	return m, nil
}

func (m Model) viewHelp() string {
	help := `
appforge - Help
═══════════════

DESCRIBE
────────
  Enter        Generate an implementation plan
  Ctrl+J       Insert a newline
  Esc          Clear the description

PLAN REVIEW
───────────
  a, Enter     Approve the plan and generate code
  r            Regenerate the plan
  j/k, ↑/↓     Scroll
  g/G          Jump to top/bottom

CODE REVIEW
───────────
  Tab, ←/→     Switch between the structure and file tabs
  c            Copy the active tab to the clipboard
  a, Enter     Approve and open the preview
  r            Regenerate the code

PREVIEW
───────
  o            Open the preview in your browser
  r            Refresh the served preview
  c            Chat to request changes
  e            Export a zip of the project
  d            Export the project as a directory

CHAT
────
  Enter        Send the change request
  ↑/↓          Scroll the conversation
  Esc          Back to the preview

ANYWHERE
────────
  n            Start over (outside text input)
  Esc          Start over while generating
  Ctrl+O       Browse project history
  F1, ?        Show this help
  Ctrl+C       Quit

Press esc to return
`

	return helpStyle.Render(help)
}

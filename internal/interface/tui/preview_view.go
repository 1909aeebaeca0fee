package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "o":
		if m.preview == nil {
			m.status = "Preview server is disabled"
			return m, nil
		}
		return m, m.publishPreview(true)
	case "r":
		m.status = "Preview refreshed"
		return m, m.publishPreview(false)
	case "e":
		return m, exportZip(m.exportDir, m.projectName, m.session.Files)
	case "d":
		return m, exportDir(m.exportDir, m.projectName, m.session.Files)
	case "c":
		if err := m.ctrl.OpenChat(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = ""
		return m, m.sync()
	}
	return m, nil
}

func (m Model) viewPreview() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Your app is ready!"))
	b.WriteString("\n\n")

	switch {
	case m.preview == nil:
		b.WriteString(metaStyle.Render("Preview server is disabled"))
	case m.previewURL == "":
		b.WriteString(m.spinner.View() + " Starting preview server...")
	default:
		b.WriteString("Preview: " + urlStyle.Render(m.previewURL))
		if m.opened {
			b.WriteString(metaStyle.Render("  (opened in your browser)"))
		}
	}
	b.WriteString("\n\n")

	for _, name := range m.session.Files.Names() {
		content, _ := m.session.Files.Get(name)
		b.WriteString(itemStyle.Render(fmt.Sprintf("%-24s %s", name, humanize.Bytes(uint64(len(content))))))
		b.WriteString("\n")
	}

	if len(m.warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("Preview warnings:"))
		b.WriteString("\n")
		for _, w := range m.warnings {
			b.WriteString(warningStyle.Render("  • " + w))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("o open in browser • r refresh • c chat • e export zip • d export directory • n new app • ? help • q quit"))
	return b.String()
}

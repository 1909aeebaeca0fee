package tui

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/appforge/internal/core/archive"
	"github.com/neilberkman/appforge/internal/core/db"
	"github.com/neilberkman/appforge/internal/core/models"
)

type errMsg struct {
	err error
}

// stepDoneMsg reports the end of a controller call started by runStep
type stepDoneMsg struct {
	seq int
	err error
}

type projectsLoadedMsg struct {
	projects []db.Project
}

type sessionLoadedMsg struct {
	session models.Session
}

type previewReadyMsg struct {
	url      string
	warnings []string
	opened   bool
	err      error
}

type exportedMsg struct {
	path string
	err  error
}

type clearCopiedMsg struct {
	token int
}

// runStep runs a blocking controller call off the event loop
func runStep(seq int, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return stepDoneMsg{seq: seq, err: fn()}
	}
}

func loadProjects(database *db.DB) tea.Cmd {
	return func() tea.Msg {
		projects, err := database.ListProjects(context.Background(), db.ListOptions{Limit: 200})
		if err != nil {
			return errMsg{err}
		}
		return projectsLoadedMsg{projects}
	}
}

func loadSession(database *db.DB, id string) tea.Cmd {
	return func() tea.Msg {
		s, err := database.GetSession(context.Background(), id)
		if err != nil {
			return errMsg{err}
		}
		return sessionLoadedMsg{s}
	}
}

// refreshPreview publishes files to the preview server, starting it on
// first use, and opens the browser when open is set
func refreshPreview(ctx context.Context, p Previewer, o URLOpener, files models.FileMap, start, open bool) tea.Cmd {
	return func() tea.Msg {
		doc, err := p.Update(files)
		if err != nil {
			return previewReadyMsg{err: err}
		}
		if start {
			if err := p.Start(ctx); err != nil {
				return previewReadyMsg{err: err}
			}
		}

		msg := previewReadyMsg{url: p.URL()}
		for _, w := range doc.Warnings {
			msg.warnings = append(msg.warnings, w.String())
		}
		if open && o != nil && msg.url != "" {
			if err := o.Open(msg.url); err != nil {
				msg.err = fmt.Errorf("failed to open browser: %w", err)
			} else {
				msg.opened = true
			}
		}
		return msg
	}
}

func exportZip(dir, name string, files models.FileMap) tea.Cmd {
	return func() tea.Msg {
		dest := filepath.Join(dir, name+".zip")
		err := archive.WriteZipFile(dest, files, archive.Options{ProjectName: name})
		return exportedMsg{path: dest, err: err}
	}
}

func exportDir(dir, name string, files models.FileMap) tea.Cmd {
	return func() tea.Msg {
		path, err := archive.WriteDir(dir, files, archive.Options{ProjectName: name})
		return exportedMsg{path: path, err: err}
	}
}

// Package tui is the interactive front end: one view per workflow state plus
// a help overlay and a history browser.
package tui

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/appforge/internal/core/archive"
	"github.com/neilberkman/appforge/internal/core/db"
	"github.com/neilberkman/appforge/internal/core/models"
	"github.com/neilberkman/appforge/internal/core/preview"
	"github.com/neilberkman/appforge/internal/core/workflow"
)

type viewMode int

const (
	workflowView viewMode = iota
	historyView
	helpView
)

// Previewer serves the rendered app; *preview.Server satisfies it
type Previewer interface {
	Update(files models.FileMap) (preview.Document, error)
	Start(ctx context.Context) error
	URL() string
}

// URLOpener opens the preview in a browser; *preview.Opener satisfies it
type URLOpener interface {
	Open(url string) error
}

// Options wires the model to the rest of the app. Only Controller is required.
type Options struct {
	Controller  *workflow.Controller
	DB          *db.DB // nil disables the history browser
	Preview     Previewer
	Opener      URLOpener
	ExportDir   string
	ProjectName string
	Context     context.Context
}

type Model struct {
	ctx         context.Context
	ctrl        *workflow.Controller
	db          *db.DB
	preview     Previewer
	opener      URLOpener
	exportDir   string
	projectName string
	copyFn      func(string) error

	initCmd  tea.Cmd
	mode     viewMode
	session  models.Session
	input    textarea.Model
	spinner  spinner.Model
	viewport viewport.Model
	history  list.Model
	width    int
	height   int
	err      error
	status   string

	// seq identifies the controller call we are waiting on; 0 means none
	seq     int
	lastSeq int

	// code review
	activeTab int
	copied    bool
	copyToken int

	// preview
	previewURL      string
	previewStarting bool
	opened          bool
	warnings        []string
}

// New creates the model around a controller, which may already hold a
// session loaded from history.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	name := opts.ProjectName
	if name == "" {
		name = archive.DefaultProjectName
	}
	dir := opts.ExportDir
	if dir == "" {
		dir = "."
	}

	ta := textarea.New()
	ta.Placeholder = "Describe the app you want to build..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(5)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j"))
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = currentStepStyle

	m := Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		db:          opts.DB,
		preview:     opts.Preview,
		opener:      opts.Opener,
		exportDir:   dir,
		projectName: name,
		copyFn:      clipboard.WriteAll,
		mode:        workflowView,
		input:       ta,
		spinner:     sp,
		width:       80,
		height:      24,
	}
	m.session = m.ctrl.Snapshot()
	m.layout()
	m.initCmd = m.enter(m.session.State)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.initCmd)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "f1":
			if m.mode == helpView {
				m.mode = workflowView
			} else {
				m.mode = helpView
			}
			return m, nil
		case "ctrl+o":
			if m.mode == historyView {
				m.mode = workflowView
				return m, nil
			}
			return m.openHistory()
		}

		switch m.mode {
		case helpView:
			return m.updateHelp(msg)
		case historyView:
			return m.updateHistory(msg)
		}
		return m.updateWorkflow(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// pick up transitions the controller made while we wait
		if m.waiting() {
			return m, tea.Batch(cmd, m.sync())
		}
		return m, cmd

	case stepDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.seq = 0
		cmd := m.sync()
		// generation failures land in LastError or the chat transcript
		if msg.err != nil && m.session.LastError == "" &&
			!errors.Is(msg.err, workflow.ErrStale) && !errors.Is(msg.err, workflow.ErrNoCode) {
			m.err = msg.err
		}
		return m, cmd

	case projectsLoadedMsg:
		m.history = createHistoryList(msg.projects, m.width, m.height)
		m.mode = historyView
		return m, nil

	case sessionLoadedMsg:
		if err := m.ctrl.Load(msg.session); err != nil {
			m.err = err
			return m, nil
		}
		m.mode = workflowView
		m.status = "Resumed " + shortID(msg.session.ID)
		m.opened = false
		return m, m.sync()

	case previewReadyMsg:
		m.previewStarting = false
		if msg.url != "" {
			m.previewURL = msg.url
		}
		m.warnings = msg.warnings
		if msg.opened {
			m.opened = true
		}
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = "Exported to " + msg.path
		return m, nil

	case clearCopiedMsg:
		if msg.token == m.copyToken {
			m.copied = false
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	if m.mode == historyView {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	if m.inputFocused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.mode {
	case helpView:
		return m.viewHelp()
	case historyView:
		return m.viewHistory()
	}
	return m.viewWorkflow()
}

// Session returns the last snapshot the model rendered
func (m Model) Session() models.Session {
	return m.session
}

func (m Model) waiting() bool {
	return m.seq != 0
}

// startStep dispatches a blocking controller call
func (m *Model) startStep(fn func(ctx context.Context) error) tea.Cmd {
	m.lastSeq++
	m.seq = m.lastSeq
	m.err = nil
	m.status = ""
	ctx := m.ctx
	return runStep(m.seq, func() error { return fn(ctx) })
}

// startOver resets the controller. A call still in flight finishes in the
// background and its stale result is ignored.
func (m *Model) startOver() tea.Cmd {
	m.ctrl.StartOver()
	m.seq = 0
	m.err = nil
	m.status = ""
	m.opened = false
	return m.sync()
}

// sync takes a fresh snapshot and runs the entry hook when the state changed
func (m *Model) sync() tea.Cmd {
	prev := m.session
	m.session = m.ctrl.Snapshot()
	changed := prev.State != m.session.State || prev.ID != m.session.ID
	filesChanged := !prev.Files.Equal(m.session.Files)
	if !changed && !filesChanged && len(prev.ChatHistory) == len(m.session.ChatHistory) && prev.Plan == m.session.Plan {
		return nil
	}
	if changed {
		return m.enter(m.session.State)
	}
	m.refreshContent()
	if filesChanged && m.session.State == models.StateChat && m.previewURL != "" {
		// chat improvements replace the files; keep the served page current
		return refreshPreview(m.ctx, m.preview, m.opener, m.session.Files, false, false)
	}
	return nil
}

// enter prepares the view for a state the session just moved into
func (m *Model) enter(state models.State) tea.Cmd {
	m.copied = false
	m.layout()
	switch state {
	case models.StatePrompt:
		m.input.Reset()
		m.input.Placeholder = "Describe the app you want to build..."
		m.warnings = nil
		return m.input.Focus()
	case models.StateCodeReview:
		m.activeTab = 0
	case models.StatePreview:
		m.input.Blur()
		m.refreshContent()
		return m.publishPreview(!m.opened)
	case models.StateChat:
		m.input.Reset()
		m.input.Placeholder = "Ask for a change..."
		m.refreshContent()
		m.viewport.GotoBottom()
		return m.input.Focus()
	}
	m.input.Blur()
	m.refreshContent()
	m.viewport.GotoTop()
	return nil
}

func (m *Model) publishPreview(open bool) tea.Cmd {
	if m.preview == nil || m.session.Files.Len() == 0 {
		return nil
	}
	start := m.previewURL == "" && !m.previewStarting
	if start {
		m.previewStarting = true
	}
	return refreshPreview(m.ctx, m.preview, m.opener, m.session.Files, start, open)
}

func (m Model) inputFocused() bool {
	if m.mode != workflowView {
		return false
	}
	return m.session.State == models.StatePrompt || m.session.State == models.StateChat
}

// layout sizes the components to the window
func (m *Model) layout() {
	m.input.SetWidth(m.width - 4)
	height := m.height - 8
	if m.session.State == models.StateChat {
		height -= m.input.Height() + 1
	}
	if height < 3 {
		height = 3
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.width, height)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = height
	}
	if m.mode == historyView {
		m.history.SetSize(m.width, m.height-3)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
